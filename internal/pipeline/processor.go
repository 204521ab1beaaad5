package pipeline

import (
	"log/slog"

	"github.com/couchcryptid/quake-alert/internal/dedup"
	"github.com/couchcryptid/quake-alert/internal/domain"
	"github.com/couchcryptid/quake-alert/internal/observability"
)

// Processor turns one raw payload into the alerts it should produce:
// normalize, admit against the store, compose.
type Processor struct {
	store    *dedup.Store
	composer *domain.Composer
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// NewProcessor creates a Processor around a shared store.
func NewProcessor(store *dedup.Store, composer *domain.Composer, logger *slog.Logger, metrics *observability.Metrics) *Processor {
	return &Processor{
		store:    store,
		composer: composer,
		logger:   logger,
		metrics:  metrics,
	}
}

// Process returns the alerts for a payload, possibly none. The only error is a
// malformed payload, which the caller logs and drops.
func (p *Processor) Process(raw domain.RawPayload) ([]domain.Alert, error) {
	events, err := domain.Normalize(raw)
	if err != nil {
		p.metrics.NormalizeErrors.WithLabelValues(string(raw.Kind)).Inc()
		return nil, err
	}

	var alerts []domain.Alert
	if raw.Kind == domain.KindBulletinList {
		alerts = p.latestBulletin(events)
	} else {
		for _, ev := range events {
			alerts = append(alerts, p.handle(ev)...)
		}
	}

	for i := range alerts {
		alerts[i].Source = raw.Source
	}
	return alerts, nil
}

func (p *Processor) handle(ev domain.Event) []domain.Alert {
	switch e := ev.(type) {
	case domain.EEWUpdate:
		// The rendered text is the admission key for EEW.
		a := p.composer.ComposeEEW(e)
		if !p.admit(domain.ClassEEW, p.store.AdmitEEW(a.Text)) {
			return nil
		}
		return []domain.Alert{a}

	case domain.EarthquakeBulletin:
		if !p.admit(domain.ClassBulletin, p.store.AdmitBulletin(e.ID, e.IssuedAt)) {
			return nil
		}
		return []domain.Alert{p.composer.ComposeBulletin(e)}

	case domain.TsunamiAdvisoryBatch:
		var alerts []domain.Alert
		for _, item := range e.SortedItems() {
			if !p.admit(domain.ClassTsunami, p.store.AdmitTsunamiItem(item.ID)) {
				continue
			}
			if a, ok := p.composer.ComposeTsunamiItem(item); ok {
				alerts = append(alerts, a)
			}
		}
		return alerts

	case domain.TsunamiObservation:
		if !p.admit(domain.ClassTsunamiObservation, p.store.AdmitTsunamiObservation(e)) {
			return nil
		}
		return []domain.Alert{p.composer.ComposeTsunamiObservation(e)}

	case domain.LongPeriodMotion:
		if !p.admit(domain.ClassLongPeriod, p.store.AdmitLongPeriod(e)) {
			return nil
		}
		return p.composer.ComposeLongPeriod(e)

	default:
		p.logger.Warn("unhandled event class", "class", ev.Class())
		return nil
	}
}

// latestBulletin admits only the head of a most-recent-first history list.
func (p *Processor) latestBulletin(events []domain.Event) []domain.Alert {
	var bulletins []domain.EarthquakeBulletin
	for _, ev := range events {
		if b, ok := ev.(domain.EarthquakeBulletin); ok {
			bulletins = append(bulletins, b)
		}
	}
	if len(bulletins) == 0 {
		return nil
	}
	head, ok := p.store.AdmitLatestBulletin(bulletins)
	if !p.admit(domain.ClassBulletin, ok) {
		return nil
	}
	return []domain.Alert{p.composer.ComposeBulletin(head)}
}

func (p *Processor) admit(class domain.EventClass, admitted bool) bool {
	if admitted {
		p.metrics.EventsAdmitted.WithLabelValues(string(class)).Inc()
	} else {
		p.metrics.EventsSuppressed.WithLabelValues(string(class)).Inc()
	}
	return admitted
}
