package discover

import (
	"context"
	"testing"
	"time"

	"github.com/hazyhaar/mapharvest/harvest/internal/browser/browsertest"
)

func card(text string) *browsertest.Node {
	return &browsertest.Node{Sels: []string{"div.item"}, TextVal: text}
}

func fastConfig() Config {
	return Config{
		ContainerSelectors: []string{"div.feed"},
		ItemSelectors:      []string{"div.item"},
		Settle:             time.Millisecond,
		MaxRounds:          20,
	}
}

func TestExhaustStopsWhenFeedStopsGrowing(t *testing.T) {
	// Feed yields one more item per scroll, up to 4, then holds.
	sess := browsertest.NewSession()
	page := sess.AddPage("https://maps/x", &browsertest.Node{Sels: []string{"div.feed"}}, card("a"))
	page.OnScroll = func(p *browsertest.Page) {
		items := 0
		for _, n := range p.Nodes {
			for _, s := range n.Sels {
				if s == "div.item" {
					items++
				}
			}
		}
		if items < 4 {
			p.Nodes = append(p.Nodes, card("next"))
		}
	}
	sess.Goto("https://maps/x")

	d := New(fastConfig())
	items, rounds := d.Exhaust(context.Background(), sess)
	if len(items) != 4 {
		t.Fatalf("got %d items, want 4", len(items))
	}
	// Three growing rounds plus the round that confirms the plateau.
	if rounds != 4 {
		t.Fatalf("used %d rounds, want 4", rounds)
	}
}

func TestExhaustRespectsRoundBudget(t *testing.T) {
	sess := browsertest.NewSession()
	page := sess.AddPage("https://maps/x", &browsertest.Node{Sels: []string{"div.feed"}})
	page.OnScroll = func(p *browsertest.Page) {
		p.Nodes = append(p.Nodes, card("more")) // never stops growing
	}
	sess.Goto("https://maps/x")

	cfg := fastConfig()
	cfg.MaxRounds = 3
	items, rounds := New(cfg).Exhaust(context.Background(), sess)
	if rounds != 3 {
		t.Fatalf("used %d rounds, want 3", rounds)
	}
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
}

func TestExhaustStopsAtTarget(t *testing.T) {
	sess := browsertest.NewSession()
	page := sess.AddPage("https://maps/x", &browsertest.Node{Sels: []string{"div.feed"}})
	page.OnScroll = func(p *browsertest.Page) {
		p.Nodes = append(p.Nodes, card("more"), card("more"))
	}
	sess.Goto("https://maps/x")

	cfg := fastConfig()
	cfg.Target = 4
	items, _ := New(cfg).Exhaust(context.Background(), sess)
	if len(items) < 4 {
		t.Fatalf("got %d items, want at least 4", len(items))
	}
}

func TestExhaustTriggersBounded(t *testing.T) {
	sess := browsertest.NewSession()
	trigger := &browsertest.Node{Sels: []string{"button.more"}}
	sess.AddPage("https://maps/x", trigger)
	sess.Goto("https://maps/x")

	cfg := fastConfig()
	cfg.TriggerSelectors = []string{"button.more"}
	cfg.MaxTriggerClicks = 5
	clicks := New(cfg).ExhaustTriggers(context.Background(), sess)
	// Trigger never disappears, so the click budget is the stop.
	if clicks != 5 {
		t.Fatalf("clicked %d times, want 5", clicks)
	}
}

func TestExhaustTriggersStopsWhenGone(t *testing.T) {
	sess := browsertest.NewSession()
	page := sess.AddPage("https://maps/x")
	trigger := &browsertest.Node{Sels: []string{"button.more"}}
	trigger.OnClick = func() { page.Nodes = nil }
	page.Nodes = []*browsertest.Node{trigger}
	sess.Goto("https://maps/x")

	cfg := fastConfig()
	cfg.TriggerSelectors = []string{"button.more"}
	clicks := New(cfg).ExhaustTriggers(context.Background(), sess)
	if clicks != 1 {
		t.Fatalf("clicked %d times, want 1", clicks)
	}
}

func TestExhaustEmptyPage(t *testing.T) {
	sess := browsertest.NewSession()
	sess.AddPage("https://maps/x")
	sess.Goto("https://maps/x")

	items, rounds := New(fastConfig()).Exhaust(context.Background(), sess)
	if len(items) != 0 {
		t.Fatalf("got %d items, want 0", len(items))
	}
	if rounds != 1 {
		t.Fatalf("used %d rounds, want 1", rounds)
	}
}
