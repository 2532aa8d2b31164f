package common_test

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"

	"github.com/partnet/seauto/common"
	"github.com/partnet/seauto/log"
	"github.com/partnet/seauto/metrics"
	"github.com/partnet/seauto/sim"
	"github.com/partnet/seauto/storage"
)

// fastConfig shortens every wait so tests finish quickly.
func fastConfig(overrides map[string]string) common.MapConfig {
	c := common.MapConfig{
		common.KeyPageLoadTimeout:     "300ms",
		common.KeyPageLoadInterval:    "10ms",
		common.KeyWindowTimeout:       "300ms",
		common.KeyWindowInterval:      "10ms",
		common.KeyDialogNativeTimeout: "200ms",
		common.KeyDialogInterval:      "10ms",
		common.KeyAjaxTimeout:         "300ms",
		common.KeyAjaxInterval:        "10ms",
		common.KeyElementTimeout:      "300ms",
		common.KeyElementInterval:     "10ms",
		common.KeyFieldInterval:       "10ms",
		common.KeyScreenshotsDir:      "shots",
	}
	for k, v := range overrides {
		c[k] = v
	}
	return c
}

type testView struct {
	*common.View
	target    *sim.Target
	logs      *test.Hook
	metrics   *metrics.Collector
	persister *storage.MemoryPersister
}

func newTestView(t *testing.T, page sim.Page, conf map[string]string, opts ...sim.Option) *testView {
	t.Helper()

	tg, err := sim.New(page, opts...)
	require.NoError(t, err)

	l := logrus.New()
	l.SetOutput(io.Discard)
	hook := test.NewLocal(l)
	p := &storage.MemoryPersister{}
	m := metrics.New()

	v := common.NewView(tg, common.ViewOptions{
		Logger:    log.New(l, false, nil),
		Config:    fastConfig(conf),
		Metrics:   m,
		Persister: p,
	})
	return &testView{View: v, target: tg, logs: hook, metrics: m, persister: p}
}

func (tv *testView) warnings() []string {
	var out []string
	for _, e := range tv.logs.AllEntries() {
		if e.Level == logrus.WarnLevel {
			out = append(out, e.Message)
		}
	}
	return out
}

func ptr[T any](v T) *T { return &v }
