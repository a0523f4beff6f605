// orphans.go — сервис поиска осиротевших объектов конкурсов.
//
// Массивы категорий в KV и объекты в хранилище обновляются не атомарно:
// если запись в массив после загрузки объекта не удалась, объект остаётся
// в хранилище без ссылки. Такие объекты находятся сверкой листинга
// префикса concours/ со всеми массивами категорий.
//
// Запускается по требованию администратора, параллельные запуски
// не допускаются.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/arturkryukov/assoweb/internal/concours"
	"github.com/arturkryukov/assoweb/internal/policy"
	"github.com/arturkryukov/assoweb/internal/storage/object"
)

// Prometheus метрики сверки
var (
	// orphanScanRunsTotal — количество запусков сверки.
	orphanScanRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "aw_orphan_scan_runs_total",
		Help: "Общее количество запусков сверки осиротевших объектов",
	})

	// orphansFound — количество осиротевших объектов в последней сверке.
	orphansFound = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "aw_orphans_found",
		Help: "Количество осиротевших объектов, найденных последней сверкой",
	})

	// orphanScanDurationSeconds — длительность выполнения сверки.
	orphanScanDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aw_orphan_scan_duration_seconds",
		Help:    "Длительность сверки осиротевших объектов в секундах",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// ErrScanInProgress — сверка уже выполняется.
var ErrScanInProgress = errors.New("сверка уже выполняется")

// Orphan — осиротевший объект хранилища.
type Orphan struct {
	R2Key string `json:"r2Key"`
	Size  int64  `json:"size"`
}

// OrphanScanner — сервис сверки объектов конкурсов с массивами категорий.
type OrphanScanner struct {
	store   *concours.Store
	objects object.Store
	logger  *slog.Logger

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
}

// NewOrphanScanner создаёт сервис сверки.
func NewOrphanScanner(store *concours.Store, objects object.Store, logger *slog.Logger) *OrphanScanner {
	return &OrphanScanner{
		store:   store,
		objects: objects,
		logger:  logger.With(slog.String("component", "orphan_scanner")),
	}
}

// Scan выполняет сверку и возвращает осиротевшие объекты.
// Возвращает ErrScanInProgress, если сверка уже идёт.
func (s *OrphanScanner) Scan(ctx context.Context) ([]Orphan, error) {
	s.mu.Lock()
	if s.inProcess {
		s.mu.Unlock()
		return nil, ErrScanInProgress
	}
	s.inProcess = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.inProcess = false
		s.mu.Unlock()
	}()

	start := time.Now()
	orphanScanRunsTotal.Inc()

	// Все ключи, на которые ссылаются массивы категорий
	referenced := make(map[string]struct{})
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	for _, items := range all {
		for _, item := range items {
			referenced[item.R2Key] = struct{}{}
		}
	}

	// Листинг хранилища под префиксом конкурсов
	infos, err := s.objects.List(ctx, policy.PrefixConcours)
	if err != nil {
		return nil, err
	}

	orphans := []Orphan{}
	for _, info := range infos {
		if _, ok := referenced[info.Key]; !ok {
			orphans = append(orphans, Orphan{R2Key: info.Key, Size: info.Size})
		}
	}

	duration := time.Since(start)
	orphansFound.Set(float64(len(orphans)))
	orphanScanDurationSeconds.Observe(duration.Seconds())

	s.logger.Info("Сверка завершена",
		slog.Int("objects", len(infos)),
		slog.Int("referenced", len(referenced)),
		slog.Int("orphans", len(orphans)),
		slog.Duration("duration", duration),
	)
	return orphans, nil
}
