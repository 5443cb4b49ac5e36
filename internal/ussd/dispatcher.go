package ussd

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Karagwa/ChapFarm/internal/models"
	"github.com/Karagwa/ChapFarm/internal/weather"
)

const (
	weatherErrorText = "Error fetching weather data. Please try again later."
	adviceErrorText  = "Sorry, we couldn't get advice right now. Try again later."
	genericErrorText = "Service is not available. Try again later."

	forecastDays = 3
)

// WeatherService is the weather collaborator consumed by the dispatcher.
type WeatherService interface {
	Current(ctx context.Context, location string) (*weather.Observation, error)
	Forecast(ctx context.Context, location string, days int) ([]weather.ForecastDay, error)
	ActiveAlerts(ctx context.Context, location string, now time.Time) ([]weather.Alert, error)
}

// AdviceService answers free-text farming questions.
type AdviceService interface {
	Get(ctx context.Context, query string) (string, error)
}

// Dispatcher executes the side effects a state transition requests and
// finishes every callback with exactly one session save.
type Dispatcher struct {
	store   Store
	weather WeatherService
	advice  AdviceService
	logger  *zap.SugaredLogger
	now     func() time.Time
}

func NewDispatcher(store Store, ws WeatherService, as AdviceService, logger *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{
		store:   store,
		weather: ws,
		advice:  as,
		logger:  logger,
		now:     time.Now,
	}
}

// Apply folds an outcome into the session and persists it. The returned
// reply is always safe to show the caller; the error, when set, is the
// internal cause already downgraded to a generic terminal message, returned
// for the audit trail.
func (d *Dispatcher) Apply(ctx context.Context, sess *models.USSDSession, out Outcome) (Reply, error) {
	sess.CurrentState = string(out.Next)
	sess.Scratch = out.Scratch.Marshal()

	if out.Effect == nil {
		if err := d.store.Commit(ctx, sess, nil); err != nil {
			d.logger.Errorw("failed to save session", "session_id", sess.SessionID, "error", err)
			return EndReply(genericErrorText), err
		}
		return out.Reply, nil
	}

	switch out.Effect.Kind {
	case EffectCreateFarmer, EffectCreateReport, EffectCreateTransport:
		return d.applyWrites(ctx, sess, out.Effect)
	case EffectFetchWeather:
		return d.fetchWeather(ctx, sess, out.Effect.WeatherQuery)
	case EffectFetchAlerts:
		return d.fetchAlerts(ctx, sess, out.Effect.AlertsQuery)
	case EffectFetchAdvice:
		return d.fetchAdvice(ctx, sess, out.Effect.AdviceQuery)
	}

	err := fmt.Errorf("unknown effect kind %d", out.Effect.Kind)
	d.logger.Errorw("unknown effect kind", "session_id", sess.SessionID, "kind", out.Effect.Kind)
	return EndReply(genericErrorText), err
}

// applyWrites commits the requested entity writes together with the session
// save. On failure the whole transaction rolls back and the previously
// persisted session state stands.
func (d *Dispatcher) applyWrites(ctx context.Context, sess *models.USSDSession, e *Effect) (Reply, error) {
	writes := &Writes{
		Farmer:    e.Farmer,
		Report:    e.Report,
		Transport: e.Transport,
	}

	// The machine never sees the raw phone number; the session carries it.
	if writes.Farmer != nil {
		writes.Farmer.Phone = sess.PhoneNumber
	}

	if err := d.store.Commit(ctx, sess, writes); err != nil {
		d.logger.Errorw("failed to commit callback writes",
			"session_id", sess.SessionID, "state", sess.CurrentState, "error", err)
		return EndReply(genericErrorText), err
	}

	return EndReply(e.Confirm), nil
}

func (d *Dispatcher) fetchWeather(ctx context.Context, sess *models.USSDSession, q *WeatherQuery) (Reply, error) {
	var (
		body string
		err  error
	)

	switch q.Option {
	case WeatherForecast:
		var days []weather.ForecastDay
		days, err = d.weather.Forecast(ctx, q.Location, forecastDays)
		if err == nil {
			body = FormatForecast(q.Location, days)
		}
	default:
		var obs *weather.Observation
		obs, err = d.weather.Current(ctx, q.Location)
		if err == nil {
			body = FormatCurrentWeather(q.Location, obs)
		}
	}

	if err != nil {
		d.logger.Errorw("weather fetch failed", "session_id", sess.SessionID, "location", q.Location, "error", err)
		return d.failFetch(ctx, sess, weatherErrorText), err
	}

	return d.finishFetch(ctx, sess, body)
}

func (d *Dispatcher) fetchAlerts(ctx context.Context, sess *models.USSDSession, q *AlertsQuery) (Reply, error) {
	alerts, err := d.weather.ActiveAlerts(ctx, q.Location, d.now())
	if err != nil {
		d.logger.Errorw("alerts fetch failed", "session_id", sess.SessionID, "location", q.Location, "error", err)
		return d.failFetch(ctx, sess, weatherErrorText), err
	}
	return d.finishFetch(ctx, sess, FormatAlerts(q.Location, alerts))
}

func (d *Dispatcher) fetchAdvice(ctx context.Context, sess *models.USSDSession, query string) (Reply, error) {
	text, err := d.advice.Get(ctx, query)
	if err != nil {
		d.logger.Errorw("advice fetch failed", "session_id", sess.SessionID, "error", err)
		return d.failFetch(ctx, sess, adviceErrorText), err
	}
	return d.finishFetch(ctx, sess, FormatAdvice(text))
}

// finishFetch persists the reset session and renders the fetched body.
func (d *Dispatcher) finishFetch(ctx context.Context, sess *models.USSDSession, body string) (Reply, error) {
	if err := d.store.Commit(ctx, sess, nil); err != nil {
		d.logger.Errorw("failed to save session after fetch", "session_id", sess.SessionID, "error", err)
		return EndReply(genericErrorText), err
	}
	return EndReply(body), nil
}

// failFetch resets the session to INITIAL so the next dial starts clean and
// reports a caller-safe message. The reset save is best effort; the reply
// goes out regardless.
func (d *Dispatcher) failFetch(ctx context.Context, sess *models.USSDSession, text string) Reply {
	sess.CurrentState = string(StateInitial)
	sess.Scratch = Scratch{}.Marshal()
	if err := d.store.Commit(ctx, sess, nil); err != nil {
		d.logger.Errorw("failed to reset session", "session_id", sess.SessionID, "error", err)
	}
	return EndReply(text)
}
