package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/F3Joule/subsocial-v2/internal/social"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecorderCountsOperations(t *testing.T) {
	recorder := NewRecorder()
	recorder.ObserveOperation("create_space", "applied", time.Millisecond)
	recorder.ObserveOperation("create_space", "applied", time.Millisecond)
	recorder.ObserveOperation("follow_space", "rejected", time.Millisecond)

	if got := testutil.ToFloat64(recorder.operations.WithLabelValues("create_space", "applied")); got != 2 {
		t.Fatalf("expected 2 applied create_space, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.operations.WithLabelValues("follow_space", "rejected")); got != 1 {
		t.Fatalf("expected 1 rejected follow_space, got %v", got)
	}
	if count := testutil.CollectAndCount(recorder.operationDuration); count != 2 {
		t.Fatalf("expected 2 duration series, got %d", count)
	}
}

func TestRecorderPublishesEvents(t *testing.T) {
	recorder := NewRecorder()
	var sink social.EventSink = recorder
	sink.Publish(social.Event{Name: social.EventAccountReputationChanged, Delta: 15})
	sink.Publish(social.Event{Name: social.EventAccountReputationChanged, Delta: -3})
	sink.Publish(social.Event{Name: social.EventPostCreated})

	if got := testutil.ToFloat64(recorder.events.WithLabelValues(string(social.EventAccountReputationChanged))); got != 2 {
		t.Fatalf("expected 2 reputation events, got %v", got)
	}
	if got := testutil.ToFloat64(recorder.reputationDelta); got != 15 {
		t.Fatalf("expected granted reputation 15, got %v", got)
	}
}

func TestRecorderWritesTextfile(t *testing.T) {
	recorder := NewRecorder()
	recorder.ObserveSnapshot(social.Snapshot{Accounts: make([]social.SocialAccount, 3)})
	recorder.ObserveOperation("create_profile", "denied", time.Microsecond)

	path := filepath.Join(t.TempDir(), "subsocial.prom")
	if err := recorder.WriteTextfile(path); err != nil {
		t.Fatalf("write textfile: %v", err)
	}
	contents, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read textfile: %v", err)
	}
	for _, expected := range []string{
		`subsocial_ledger_entities{kind="accounts"} 3`,
		`subsocial_operations_total{operation="create_profile",outcome="denied"} 1`,
	} {
		if !strings.Contains(string(contents), expected) {
			t.Fatalf("expected %q in textfile:\n%s", expected, contents)
		}
	}
}
