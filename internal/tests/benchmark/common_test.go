package benchmark

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"testing"

	"github.com/jeff-tyrrill/data-scribbler/internal/core/domain"
	"github.com/jeff-tyrrill/data-scribbler/internal/core/service"
	"github.com/jeff-tyrrill/data-scribbler/internal/storage"
)

// HistoryLengths defines the document history lengths for benchmarking.
var HistoryLengths = []int{25, 100, 500, 2000}

// SmallHistoryLengths for quick benchmarks.
var SmallHistoryLengths = []int{25, 100}

// Drivers are the storage backends compared by the benchmarks.
var Drivers = []string{storage.DriverMemory, storage.DriverFS, storage.DriverBadger}

// snapshotEvery keeps prefilled histories inside the default checkpoint
// bounds.
const snapshotEvery = 20

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

// openBackend opens driver in a temp dir. Badger runs without fsync so the
// numbers track the engine rather than the disk.
func openBackend(b *testing.B, driver string) storage.Backend {
	b.Helper()
	cfg := storage.DefaultConfig(b.TempDir())
	cfg.Driver = driver
	cfg.Badger.SyncWrites = false
	backend, err := storage.Open(cfg, quietLogger)
	if err != nil {
		b.Fatalf("open %s: %v", driver, err)
	}
	b.Cleanup(func() { backend.Close() })
	return backend
}

func newService(b *testing.B, driver string) *service.DocumentService {
	b.Helper()
	return service.NewDocumentService(openBackend(b, driver), service.DefaultDocumentServiceConfig(),
		service.WithLogger(quietLogger))
}

// newAction builds action n: a snapshot every snapshotEvery versions and a
// small step otherwise.
func newAction(b *testing.B, n int64) *domain.Action {
	b.Helper()
	fields := map[string]any{"ops": []any{map[string]any{"set": fmt.Sprintf("atom-%d", n), "value": n}}}
	if n%snapshotEvery == 0 {
		fields = map[string]any{"fullStateAtoms": map[string]any{"root": map[string]any{"rev": n}}}
	}
	a, err := domain.NewAction(n, fields)
	if err != nil {
		b.Fatal(err)
	}
	return a
}

// prefillDocument creates a document with versions 0..length-1 and returns
// its edit id.
func prefillDocument(ctx context.Context, b *testing.B, svc *service.DocumentService, length int) string {
	b.Helper()
	res, err := svc.Save(ctx, &service.SaveRequest{Action: newAction(b, 0)})
	if err != nil {
		b.Fatalf("create: %v", err)
	}
	id := res.ID.String()
	for n := int64(1); n < int64(length); n++ {
		if _, err := svc.Save(ctx, &service.SaveRequest{ID: id, Action: newAction(b, n)}); err != nil {
			b.Fatalf("save %d: %v", n, err)
		}
	}
	return id
}

// reportMemory reports memory usage.
func reportMemory(b *testing.B, prefix string) {
	var m runtime.MemStats
	runtime.GC()
	runtime.ReadMemStats(&m)
	b.ReportMetric(float64(m.Alloc)/(1024*1024), prefix+"_MB")
	b.ReportMetric(float64(m.NumGC), prefix+"_GC")
}

// runWithDrivers runs a benchmark function against each backend.
func runWithDrivers(b *testing.B, benchFn func(b *testing.B, driver string)) {
	for _, driver := range Drivers {
		b.Run(driver, func(b *testing.B) {
			benchFn(b, driver)
		})
	}
}
