package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"github.com/dshills/eventsys/internal/config"
	"github.com/dshills/eventsys/internal/gen/install"
	"github.com/dshills/eventsys/internal/logging"
)

const bankYAML = `
scripts:
  - name: bank.Receipts
    file: receipts.lua
types:
  - name: bank.Transfer
    extends: [eventsys.Cancellable]
    methods:
      - {name: getAmount, returns: int}
  - name: bank.Receipt
    methods:
      - {name: receipt, returns: string}
  - name: bank.TransferFactory
    methods:
      - name: create
        params: [{name: amount, type: int}, {name: memo, type: string, mutable: true}]
        returns: bank.Transfer
extensions:
  - {base: bank.Transfer, implement: bank.Receipt, script: bank.Receipts}
factories: [bank.TransferFactory]
events:
  - type: bank.Transfer
    properties: [{name: fee, type: int}]
`

func newRunner(t *testing.T, fs afero.Fs, out *bytes.Buffer) *runner {
	t.Helper()
	cfg := config.Default()
	cfg.Debug.Enabled = true
	cfg.Debug.Dir = "/out"
	return &runner{
		cfg:      cfg,
		log:      logging.Nop(),
		manifest: "/src/bank.yaml",
		out:      out,
		fs:       fs,
	}
}

func TestRunner_Generate(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/src/bank.yaml", []byte(bankYAML), 0o644)
	_ = afero.WriteFile(fs, "/src/receipts.lua", []byte(`function receipt(evt) return "paid " .. evt.amount end`), 0o644)

	var out bytes.Buffer
	r := newRunner(t, fs, &out)
	if err := r.generate(context.Background()); err != nil {
		t.Fatalf("generate() error = %v", err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	kinds := map[string]int{}
	for _, l := range lines {
		kinds[strings.Fields(l)[0]]++
	}
	// the factory, the event it constructs and the requested event class
	if kinds["factory"] != 1 || kinds["event"] != 2 {
		t.Errorf("output = %q", out.String())
	}

	entries, err := afero.ReadDir(fs, "/out/"+install.TagEvent)
	if err != nil || len(entries) == 0 {
		t.Errorf("event artifacts not written: %v", err)
	}
	if ok, _ := afero.DirExists(fs, "/out/"+install.TagFactory); !ok {
		t.Error("factory artifacts not written")
	}

	if len(r.files) != 2 || r.files[1] != "/src/receipts.lua" {
		t.Errorf("files = %v", r.files)
	}

	// a second run uses a fresh loader and succeeds
	out.Reset()
	if err := r.generate(context.Background()); err != nil {
		t.Fatalf("second generate() error = %v", err)
	}
}

func TestRunner_Generate_Invalid(t *testing.T) {
	fs := afero.NewMemMapFs()
	_ = afero.WriteFile(fs, "/src/bank.yaml", []byte("factories: [bank.Missing]"), 0o644)

	var out bytes.Buffer
	if err := newRunner(t, fs, &out).generate(context.Background()); err == nil {
		t.Fatal("generate() should fail for an unknown factory")
	}
	if out.Len() != 0 {
		t.Errorf("nothing should be printed, got %q", out.String())
	}
}

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out.String(), "eventsys dev\n") {
		t.Errorf("output = %q", out.String())
	}
}

func TestGenCmd_RequiresManifest(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"gen"})
	if err := root.Execute(); err == nil || !strings.Contains(err.Error(), "manifest") {
		t.Errorf("error = %v, want missing manifest flag", err)
	}
}
