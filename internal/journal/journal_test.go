package journal

import (
	"errors"
	"testing"
	"time"

	"github.com/Klingon-tech/vaultclient/config"
	"github.com/Klingon-tech/vaultclient/internal/storage"
	"github.com/Klingon-tech/vaultclient/pkg/types"
)

func testJournal(t *testing.T) *Journal {
	t.Helper()
	j := New(storage.NewMemory())
	t.Cleanup(func() { j.Close() })
	return j
}

func TestSubmitted_LookupByFingerprint(t *testing.T) {
	j := testJournal(t)
	fp := types.Hash{0x01}
	hash := types.Hash{0x02}
	sender := types.Address{31: 0x03}

	if err := j.Submitted(fp, hash, sender, 7); err != nil {
		t.Fatalf("Submitted() error: %v", err)
	}

	rec, ok, err := j.LookupFingerprint(fp)
	if err != nil {
		t.Fatalf("LookupFingerprint() error: %v", err)
	}
	if !ok {
		t.Fatal("LookupFingerprint() found nothing")
	}
	if rec.Hash != hash || rec.Sender != sender || rec.SequenceNumber != 7 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Done() {
		t.Error("fresh submission should not be done")
	}

	if _, ok, _ := j.LookupFingerprint(types.Hash{0xff}); ok {
		t.Error("unknown fingerprint should not be found")
	}
}

func TestCompleted(t *testing.T) {
	j := testJournal(t)
	hash := types.Hash{0x0a}
	j.Submitted(types.Hash{0x0b}, hash, types.Address{31: 1}, 0)

	if err := j.Completed(hash, "committed_success", "Executed successfully", 42); err != nil {
		t.Fatalf("Completed() error: %v", err)
	}
	rec, ok, err := j.Lookup(hash)
	if err != nil || !ok {
		t.Fatalf("Lookup() = %v, %v", ok, err)
	}
	if !rec.Done() || rec.Status != "committed_success" || rec.Version != 42 {
		t.Errorf("record = %+v", rec)
	}
	if rec.Fingerprint != (types.Hash{0x0b}) {
		t.Error("Completed() must keep the fingerprint")
	}
}

func TestCompleted_UnknownHash(t *testing.T) {
	j := testJournal(t)
	hash := types.Hash{0x0c}
	if err := j.Completed(hash, "committed_failure", "ABORTED", 1); err != nil {
		t.Fatalf("Completed() error: %v", err)
	}
	rec, ok, _ := j.Lookup(hash)
	if !ok || rec.Status != "committed_failure" {
		t.Errorf("record = %+v, found = %v", rec, ok)
	}
}

func TestPending_Ordered(t *testing.T) {
	j := testJournal(t)
	base := time.Unix(1_700_000_000, 0)
	step := 0
	j.now = func() time.Time {
		step++
		return base.Add(time.Duration(step) * time.Second)
	}

	// Hash order is the reverse of submission order.
	j.Submitted(types.Hash{0x01}, types.Hash{0x30}, types.Address{31: 1}, 0)
	j.Submitted(types.Hash{0x02}, types.Hash{0x20}, types.Address{31: 1}, 1)
	j.Submitted(types.Hash{0x03}, types.Hash{0x10}, types.Address{31: 1}, 2)
	j.Completed(types.Hash{0x20}, "committed_success", "", 5)

	pending, err := j.Pending()
	if err != nil {
		t.Fatalf("Pending() error: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Pending() len = %d, want 2", len(pending))
	}
	if pending[0].SequenceNumber != 0 || pending[1].SequenceNumber != 2 {
		t.Errorf("Pending() order = %d, %d; want 0, 2", pending[0].SequenceNumber, pending[1].SequenceNumber)
	}
}

func TestClosed(t *testing.T) {
	j := New(storage.NewMemory())
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("second Close() error: %v", err)
	}
	if err := j.Submitted(types.Hash{}, types.Hash{}, types.Address{}, 0); !errors.Is(err, ErrClosed) {
		t.Errorf("Submitted() after Close error = %v, want ErrClosed", err)
	}
	if _, _, err := j.Lookup(types.Hash{}); !errors.Is(err, ErrClosed) {
		t.Errorf("Lookup() after Close error = %v, want ErrClosed", err)
	}
}

func TestOpen_Disabled(t *testing.T) {
	cfg := config.DefaultLocal()
	cfg.Journal.Enabled = false
	j, err := Open(cfg)
	if err != nil || j != nil {
		t.Errorf("Open() = %v, %v; want nil, nil", j, err)
	}
}

func TestOpen_Persistent(t *testing.T) {
	cfg := config.DefaultLocal()
	cfg.DataDir = t.TempDir()
	cfg.Journal.Persistent = true

	j, err := Open(cfg)
	if err != nil {
		t.Fatalf("Open() error: %v", err)
	}
	hash := types.Hash{0x44}
	if err := j.Submitted(types.Hash{0x45}, hash, types.Address{31: 9}, 3); err != nil {
		t.Fatalf("Submitted() error: %v", err)
	}
	if err := j.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	j2, err := Open(cfg)
	if err != nil {
		t.Fatalf("reopen error: %v", err)
	}
	defer j2.Close()
	rec, ok, err := j2.LookupFingerprint(types.Hash{0x45})
	if err != nil || !ok {
		t.Fatalf("LookupFingerprint() after reopen = %v, %v", ok, err)
	}
	if rec.Hash != hash || rec.SequenceNumber != 3 {
		t.Errorf("record after reopen = %+v", rec)
	}
}
