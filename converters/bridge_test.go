package converters_test

import (
	"testing"

	"github.com/darianmavgo/mkcsv/converters"
	"github.com/darianmavgo/mkcsv/converters/common"
	_ "github.com/darianmavgo/mkcsv/converters/sqlite"
)

func TestBridgeLifecycle(t *testing.T) {
	b := converters.NewBridge("sqlite")
	if err := b.Ready(); !common.Is(err, common.ErrConfiguration) {
		t.Fatalf("Ready() before Init = %v, want CONFIGURATION_ERROR", err)
	}
	if err := b.Init(); err != nil {
		t.Fatalf("Init() = %v", err)
	}
	if err := b.Init(); err != nil {
		t.Fatalf("second Init() = %v", err)
	}
	if b.Engine() == nil || b.Engine().DriverName() != "sqlite" {
		t.Errorf("unexpected engine %v", b.Engine())
	}
}

func TestBridgeUnknownEngine(t *testing.T) {
	b := converters.NewBridge("ucanaccess")
	if err := b.Init(); !common.Is(err, common.ErrConfiguration) {
		t.Fatalf("Init() = %v, want CONFIGURATION_ERROR", err)
	}
	if b.Engine() != nil {
		t.Error("engine should be nil when not ready")
	}
}

func TestEnginesListsRegistered(t *testing.T) {
	found := false
	for _, name := range converters.Engines() {
		if name == "sqlite" {
			found = true
		}
	}
	if !found {
		t.Errorf("sqlite not in %v", converters.Engines())
	}
	if _, err := converters.Lookup("nope"); !common.Is(err, common.ErrConfiguration) {
		t.Errorf("Lookup(nope) = %v", err)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic on duplicate registration")
		}
	}()
	engine, _ := converters.Lookup("sqlite")
	converters.Register("sqlite", engine)
}
