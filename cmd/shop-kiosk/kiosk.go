package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/xenking/warishayday/internal/domain/apperr"
	"github.com/xenking/warishayday/internal/domain/intake"
	"github.com/xenking/warishayday/internal/domain/pricing"
	"github.com/xenking/warishayday/internal/domain/shop"
)

var typeLabels = map[shop.PurchaseType]string{
	shop.TypeMixed:    "mixed (คละ)",
	shop.TypeSelected: "selected (เลือก)",
	shop.TypePure:     "pure (ล้วน)",
	shop.TypeCross:    "cross-category (ข้ามโซน)",
}

// kiosk runs customer sessions over a line-oriented terminal.
type kiosk struct {
	in     *bufio.Scanner
	out    io.Writer
	config func(ctx context.Context) *shop.ShopConfig
	placer intake.Placer
	lg     *slog.Logger
}

// run serves customers until the input ends or the operator quits.
func (k *kiosk) run(ctx context.Context) error {
	for {
		cfg := k.config(ctx)
		fmt.Fprintf(k.out, "\n== %s ==\n%s\n", cfg.ShopName, cfg.Slogan)
		quit, err := k.serve(ctx, cfg, intake.NewSession(cfg))
		if err != nil || quit {
			return err
		}
	}
}

func (k *kiosk) serve(ctx context.Context, cfg *shop.ShopConfig, s *intake.Session) (bool, error) {
	for {
		if err := ctx.Err(); err != nil {
			return true, err
		}
		k.prompt(cfg, s)
		if !k.in.Scan() {
			return true, k.in.Err()
		}
		line := strings.TrimSpace(k.in.Text())

		switch line {
		case "q":
			return true, nil
		case "r":
			s.Reset()
			continue
		case "b":
			if err := s.Back(); err != nil {
				k.fail(err)
			}
			continue
		}

		if err := k.step(ctx, cfg, s, line); err != nil {
			k.fail(err)
			continue
		}
		if o := s.Placed(); o != nil {
			fmt.Fprintf(k.out, "Order %s placed. Total %d baht.\n", o.ID, o.Price)
			k.lg.Info("order placed", slog.String("order_id", o.ID), slog.Int64("price", o.Price))
			return false, nil
		}
	}
}

func (k *kiosk) prompt(cfg *shop.ShopConfig, s *intake.Session) {
	switch s.State() {
	case intake.StateCategorySelection:
		fmt.Fprintln(k.out, "Choose a category:")
		for i, id := range cfg.CategoryIDs() {
			fmt.Fprintf(k.out, "  %d) %s\n", i+1, cfg.Label(id))
		}
	case intake.StateLimitEntry:
		fmt.Fprintf(k.out, "Enter your current limit (0-%d, 0 buys the full limit):\n", pricing.MaxLimit)
	case intake.StateTypeSelection:
		fmt.Fprintf(k.out, "Remaining limit %d. Choose a purchase type:\n", s.Limit().Remaining)
		for i, t := range shop.PurchaseTypes {
			fmt.Fprintf(k.out, "  %d) %s\n", i+1, typeLabels[t])
		}
	case intake.StateItemEntry:
		items, qty := s.Items()
		for i, it := range items {
			fmt.Fprintf(k.out, "  %d) %s x%d\n", i+1, it.Name, qty[i])
		}
		q := s.Quote()
		fmt.Fprintf(k.out, "Price %d baht (%s). Enter \"<item> <qty>\" or \"done\":\n", q.Price, q.Status)
	case intake.StateSummary:
		fmt.Fprintln(k.out, "Confirm order? (y/n)")
	}
}

func (k *kiosk) step(ctx context.Context, cfg *shop.ShopConfig, s *intake.Session, line string) error {
	switch s.State() {
	case intake.StateCategorySelection:
		ids := cfg.CategoryIDs()
		id := line
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(ids) {
			id = ids[n-1]
		}
		return s.SelectCategory(id)

	case intake.StateLimitEntry:
		n, err := strconv.Atoi(line)
		if err != nil {
			return apperr.Invalid("limit", "enter a number")
		}
		return s.DeclareLimit(n)

	case intake.StateTypeSelection:
		t := shop.PurchaseType(line)
		if n, err := strconv.Atoi(line); err == nil && n >= 1 && n <= len(shop.PurchaseTypes) {
			t = shop.PurchaseTypes[n-1]
		}
		_, err := s.SelectType(t)
		return err

	case intake.StateItemEntry:
		if line == "done" {
			sum, err := s.Review()
			if err != nil {
				return err
			}
			k.printSummary(sum)
			return nil
		}
		return k.setQuantity(s, line)

	case intake.StateSummary:
		switch line {
		case "y":
			_, err := s.Submit(ctx, k.placer)
			return err
		case "n":
			return s.Back()
		}
		return apperr.Invalid("confirm", "answer y or n")
	}
	return errors.Errorf("unexpected state %s", s.State())
}

func (k *kiosk) setQuantity(s *intake.Session, line string) error {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return apperr.Invalid("items", `enter "<item> <qty>"`)
	}
	items, _ := s.Items()
	n, err := strconv.Atoi(fields[0])
	if err != nil || n < 1 || n > len(items) {
		return apperr.Invalidf("items", "choose an item between 1 and %d", len(items))
	}
	qty, err := strconv.Atoi(fields[1])
	if err != nil {
		return apperr.Invalid("quantity", "enter a number")
	}
	_, err = s.SetQuantity(items[n-1].Name, qty)
	return err
}

func (k *kiosk) printSummary(sum *intake.Summary) {
	fmt.Fprintf(k.out, "Category: %s\nType: %s\n", sum.Category, typeLabels[sum.Type])
	for _, l := range sum.Lines {
		fmt.Fprintf(k.out, "  %s x%d\n", l.Name, l.Quantity)
	}
	fmt.Fprintf(k.out, "Total: %d baht (%s)\n", sum.Quote.Price, sum.Quote.Status)
}

func (k *kiosk) fail(err error) {
	var verr *apperr.ValidationError
	switch {
	case errors.As(err, &verr):
		fmt.Fprintf(k.out, "! %s\n", verr.Reason)
	case errors.Is(err, intake.ErrInvalidTransition):
		fmt.Fprintln(k.out, "! nothing to go back to")
	case apperr.IsTransport(err):
		fmt.Fprintln(k.out, "! the shop is offline, please try again")
		k.lg.Warn("api unreachable", slog.String("error", err.Error()))
	default:
		fmt.Fprintln(k.out, "! something went wrong, please try again")
		k.lg.Error("kiosk step failed", slog.String("error", err.Error()))
	}
}
