package correlate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/WhatsYourWhy/hardstop/pkg/clock"
	"github.com/WhatsYourWhy/hardstop/pkg/hstypes"
	"github.com/WhatsYourWhy/hardstop/pkg/linker"
	"github.com/WhatsYourWhy/hardstop/pkg/score"
)

type fakeLookup struct {
	alert hstypes.Alert
	found bool
}

func (f fakeLookup) ByCorrelationKey(key string) (hstypes.Alert, bool) {
	return f.alert, f.found
}

func TestCorrelationKeyUsesSmallestFacilityAndLaneOrStar(t *testing.T) {
	event := hstypes.Event{EventType: hstypes.EventWeather}
	key := CorrelationKey(event, linker.Result{FacilityIDs: []string{"FAC-9", "FAC-2"}, LaneIDs: nil})
	require.Equal(t, "WEATHER|FAC-2|*", key)
}

func TestCorrelationKeyDefaultsToOtherForUnmappedEventType(t *testing.T) {
	key := CorrelationKey(hstypes.Event{EventType: hstypes.EventType("UNKNOWN")}, linker.Result{})
	require.Equal(t, "OTHER|*|*", key)
}

func TestUpsertCreatesWhenNotFound(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	event := hstypes.Event{EventID: "EVT-1", EventType: hstypes.EventWeather, PublishedAtUTC: clk.Now()}
	result := Upsert(clk, fakeLookup{}, event, linker.Result{}, score.Result{Score: 5, Classification: hstypes.ClassificationRelevant}, DefaultCorrelationWindowDays, func() string { return "ALERT-1" })

	require.Equal(t, hstypes.CorrelationCreated, result.Action)
	require.Equal(t, "ALERT-1", result.Alert.AlertID)
	require.Equal(t, 1, result.Alert.UpdateCount)
	require.Equal(t, []string{"EVT-1"}, result.Alert.RootEventIDs)
	require.Equal(t, result.Alert.FirstSeenUTC, result.Alert.LastSeenUTC)
}

func TestUpsertUpdatesAppendsEventAndUnionsScope(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	existing := hstypes.Alert{
		AlertID: "ALERT-1", RootEventIDs: []string{"EVT-1"}, UpdateCount: 1,
		FirstSeenUTC: clk.Now().Add(-24 * time.Hour), LastSeenUTC: clk.Now().Add(-24 * time.Hour),
		Scope: hstypes.Scope{FacilityIDs: []string{"FAC-1"}}, ImpactScore: 3,
		Classification: hstypes.ClassificationInteresting,
	}
	event := hstypes.Event{EventID: "EVT-2", EventType: hstypes.EventWeather, PublishedAtUTC: clk.Now()}
	linked := linker.Result{FacilityIDs: []string{"FAC-2"}}

	result := Upsert(clk, fakeLookup{alert: existing, found: true}, event, linked, score.Result{Score: 6, Classification: hstypes.ClassificationRelevant}, DefaultCorrelationWindowDays, func() string { return "unused" })

	require.Equal(t, hstypes.CorrelationUpdated, result.Action)
	require.Equal(t, 2, result.Alert.UpdateCount)
	require.Equal(t, []string{"EVT-1", "EVT-2"}, result.Alert.RootEventIDs)
	require.ElementsMatch(t, []string{"FAC-1", "FAC-2"}, result.Alert.Scope.FacilityIDs)
	require.Equal(t, 6, result.Alert.ImpactScore, "impact score is monotonic: max(stored, new)")
	require.Equal(t, clk.Now(), result.Alert.LastSeenUTC)
}

func TestUpsertImpactScoreNeverRegresses(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	existing := hstypes.Alert{
		AlertID: "ALERT-1", RootEventIDs: []string{"EVT-1"}, UpdateCount: 1,
		FirstSeenUTC: clk.Now(), LastSeenUTC: clk.Now(), ImpactScore: 9,
		Classification: hstypes.ClassificationImpactful,
	}
	event := hstypes.Event{EventID: "EVT-2", PublishedAtUTC: clk.Now()}
	result := Upsert(clk, fakeLookup{alert: existing, found: true}, event, linker.Result{}, score.Result{Score: 2, Classification: hstypes.ClassificationInteresting}, DefaultCorrelationWindowDays, func() string { return "unused" })
	require.Equal(t, 9, result.Alert.ImpactScore)
	require.Equal(t, hstypes.ClassificationImpactful, result.Alert.Classification)
}

func TestUpsertCreatesNewAlertOutsideConfiguredWindow(t *testing.T) {
	clk := clock.NewFixed(time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC))
	existing := hstypes.Alert{
		AlertID: "ALERT-1", RootEventIDs: []string{"EVT-1"}, UpdateCount: 1,
		FirstSeenUTC: clk.Now().Add(-48 * time.Hour), LastSeenUTC: clk.Now().Add(-48 * time.Hour),
	}
	event := hstypes.Event{EventID: "EVT-2", EventType: hstypes.EventWeather, PublishedAtUTC: clk.Now()}

	result := Upsert(clk, fakeLookup{alert: existing, found: true}, event, linker.Result{}, score.Result{Score: 1, Classification: hstypes.ClassificationInteresting}, 1, func() string { return "ALERT-2" })

	require.Equal(t, hstypes.CorrelationCreated, result.Action, "existing alert's last_seen is older than the configured 1-day window, so a new alert is created")
	require.Equal(t, "ALERT-2", result.Alert.AlertID)
}

func TestKeyLockSerializesSameKey(t *testing.T) {
	kl := NewKeyLock()
	unlock := kl.Lock("SAFETY|FAC-1|*")
	done := make(chan struct{})
	go func() {
		unlock2 := kl.Lock("SAFETY|FAC-1|*")
		unlock2()
		close(done)
	}()
	select {
	case <-done:
		t.Fatal("second lock acquired before first released")
	case <-time.After(20 * time.Millisecond):
	}
	unlock()
	<-done
}
