package ussd

import (
	"errors"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const busyText = "Another request for this session is in progress. Please try again."

// Options contains everything the USSD handler needs.
type Options struct {
	AppName         string
	Store           Store
	Weather         WeatherService
	Advice          AdviceService
	Locker          Locker
	Logger          *zap.SugaredLogger
	Logs            *LogSaver
	SessionDuration time.Duration
}

// Handler serves the gateway callback endpoint. Every callback loads a fresh
// session snapshot, re-derives the caller identity from the phone number,
// computes one pure transition and writes it back atomically.
type Handler struct {
	opt        *Options
	dispatcher *Dispatcher
}

func NewHandler(opt *Options) (*Handler, error) {
	switch {
	case opt == nil:
		return nil, errors.New("missing options")
	case opt.AppName == "":
		return nil, errors.New("missing app name")
	case opt.Store == nil:
		return nil, errors.New("missing store")
	case opt.Weather == nil:
		return nil, errors.New("missing weather service")
	case opt.Advice == nil:
		return nil, errors.New("missing advice service")
	case opt.Locker == nil:
		return nil, errors.New("missing locker")
	case opt.Logger == nil:
		return nil, errors.New("missing logger")
	default:
		if opt.SessionDuration == 0 {
			opt.SessionDuration = 5 * time.Minute
		}
	}

	return &Handler{
		opt:        opt,
		dispatcher: NewDispatcher(opt.Store, opt.Weather, opt.Advice, opt.Logger),
	}, nil
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var (
		ctx     = r.Context()
		p       = PayloadFromRequest(r)
		opt     = h.opt
		reply   Reply
		state   State
		success = true
	)

	defer func() {
		if opt.Logs != nil {
			opt.Logs.Push(ctx, p, state, reply, success)
		}
	}()

	if p.SessionID() == "" || p.PhoneNumber() == "" {
		success = false
		reply = EndReply(genericErrorText)
		_ = WriteReply(w, reply)
		return
	}

	// Serialize callbacks per session. A duplicate delivery or double press
	// waits out the first instead of diverging from the same prior state.
	key := sessionKey(opt.AppName, p.SessionID(), p.PhoneNumber())
	locked, err := opt.Locker.Acquire(ctx, key, opt.SessionDuration)
	if err != nil {
		opt.Logger.Errorw("failed to acquire session lock", "session_id", p.SessionID(), "error", err)
		success = false
		reply = EndReply(genericErrorText)
		_ = WriteReply(w, reply)
		return
	}
	if !locked {
		success = false
		reply = EndReply(busyText)
		_ = WriteReply(w, reply)
		return
	}
	defer func() {
		if err := opt.Locker.Release(ctx, key); err != nil {
			opt.Logger.Warnw("failed to release session lock", "session_id", p.SessionID(), "error", err)
		}
	}()

	sess, err := opt.Store.GetOrCreateSession(ctx, p.SessionID(), p.PhoneNumber())
	if err != nil {
		opt.Logger.Errorw("failed to load session", "session_id", p.SessionID(), "error", err)
		success = false
		reply = EndReply(genericErrorText)
		_ = WriteReply(w, reply)
		return
	}
	state = State(sess.CurrentState)

	caller, err := h.classify(r, p.PhoneNumber())
	if err != nil {
		opt.Logger.Errorw("failed to classify caller", "session_id", p.SessionID(), "error", err)
		success = false
		reply = EndReply(genericErrorText)
		_ = WriteReply(w, reply)
		return
	}

	out := Step(state, ScratchFromSession(sess), caller, p.CurrentInput())

	reply, err = h.dispatcher.Apply(ctx, sess, out)
	success = err == nil

	if err := WriteReply(w, reply); err != nil {
		opt.Logger.Errorw("failed to write response", "session_id", p.SessionID(), "error", err)
	}
}

// classify resolves guest vs. known farmer from the phone number. Called at
// the top of every callback and never cached, so a guest who registers
// mid-dialog is a farmer on the next callback.
func (h *Handler) classify(r *http.Request, phone string) (Caller, error) {
	farmer, err := h.opt.Store.FarmerByPhone(r.Context(), phone)
	switch {
	case err == nil:
		return CallerFromFarmer(farmer), nil
	case errors.Is(err, ErrFarmerNotFound):
		return Caller{}, nil
	default:
		return Caller{}, err
	}
}
