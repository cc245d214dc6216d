package shop

// MapPieceName is the item that carries its own price track in categories
// with a MapPrice.
const MapPieceName = "ชิ้นส่วนของแผนที่"

// categoryPreset is an icon/color pair assigned to new categories.
type categoryPreset struct {
	icon  string
	color string
}

var categoryPresets = []categoryPreset{
	{icon: "fas fa-warehouse", color: "bg-red"},
	{icon: "fas fa-seedling", color: "bg-orange"},
	{icon: "fas fa-map-marked-alt", color: "bg-green"},
	{icon: "fas fa-train", color: "bg-blue"},
}

// defaultCategoryPrices is the price row given to newly added categories.
var defaultCategoryPrices = PriceTable{Mixed: 100, Selected: 150, Pure: 200, Tray: 15}

func int64Ptr(v int64) *int64 { return &v }

// Default returns the first-run configuration.
func Default() *ShopConfig {
	return &ShopConfig{
		ShopName: "WARISHAYDAY",
		Slogan:   "บริการอัพเกรดรวดเร็วทันใจ",
		OrderSettings: OrderSettings{
			Prefix:     "WSD",
			DateFormat: DateMMYY,
			RunDigits:  4,
		},
		Visuals: Visuals{
			ThemeColor:        "#6366f1",
			OpacityVal:        50,
			FontSizeHeading:   20,
			FontSizeBody:      16,
			BackgroundOverlay: 50,
		},
		CategoryMeta: map[string]CategoryMeta{
			"barn":  {Label: "โรงนา", Icon: "fas fa-warehouse", Color: "bg-red"},
			"silo":  {Label: "ยุ้งฉาง", Icon: "fas fa-seedling", Color: "bg-orange"},
			"land":  {Label: "ขยายพื้นที่", Icon: "fas fa-map-marked-alt", Color: "bg-green"},
			"train": {Label: "พื้นที่รถไฟ", Icon: "fas fa-train", Color: "bg-blue"},
		},
		CategoryOrder: []string{"barn", "silo", "land", "train"},
		Prices: map[string]PriceTable{
			"barn":        defaultCategoryPrices,
			"silo":        defaultCategoryPrices,
			"land":        defaultCategoryPrices,
			"train":       {Mixed: 100, Selected: 150, Pure: 200, Tray: 15, MapPrice: int64Ptr(20)},
			CrossTableKey: {Tray: 20},
		},
		Items: map[string][]Item{
			"barn":  {{Name: "สลัก"}, {Name: "ไม้กระดาน"}, {Name: "เทปกาว"}},
			"silo":  {{Name: "ตะปู"}, {Name: "ไม้ฝา"}, {Name: "ตะปูควง"}},
			"land":  {{Name: "โฉนด"}, {Name: "ค้อนไม้"}, {Name: "หมุดหลักเขต"}},
			"train": {{Name: "โฉนด"}, {Name: "ค้อนไม้"}, {Name: "หมุดหลักเขต"}, {Name: MapPieceName}},
		},
	}
}
