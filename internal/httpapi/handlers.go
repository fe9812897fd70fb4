package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"io"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/nftforge/text2nft/internal/core/domain"
	"github.com/nftforge/text2nft/internal/core/service"
	"github.com/nftforge/text2nft/pkg/wallet"
	"github.com/rs/zerolog"
	"github.com/skip2/go-qrcode"
)

//go:embed templates/index.html
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// WalletInfo reports the wallet session for display.
type WalletInfo interface {
	Info() wallet.Info
}

// Deps are the collaborators of the HTTP layer.
type Deps struct {
	Form     *service.FormController
	Wallet   WalletInfo // optional
	Sessions *Sessions
	// BaseContext outlives requests; background pipelines run on it.
	BaseContext context.Context
	Logger      zerolog.Logger
}

// App holds the HTTP handlers.
type App struct {
	form     *service.FormController
	wallet   WalletInfo
	sessions *Sessions
	baseCtx  context.Context
	logger   zerolog.Logger
	upgrader websocket.Upgrader
}

// NewApp creates the handler set.
func NewApp(deps Deps) *App {
	ctx := deps.BaseContext
	if ctx == nil {
		ctx = context.Background()
	}
	return &App{
		form:     deps.Form,
		wallet:   deps.Wallet,
		sessions: deps.Sessions,
		baseCtx:  ctx,
		logger:   deps.Logger,
		upgrader: websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
	}
}

type errorBody struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

type pageView struct {
	domain.Snapshot
	Preview template.URL
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error kind to a status code.
func (a *App) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	code := http.StatusInternalServerError
	switch kind {
	case domain.KindValidation:
		code = http.StatusBadRequest
	case domain.KindBusy:
		code = http.StatusConflict
	case domain.KindTransport:
		code = http.StatusServiceUnavailable
	}

	msg := err.Error()
	var de *domain.Error
	if errors.As(err, &de) && de.Op == "" {
		msg = de.Err.Error()
	}
	writeJSON(w, code, errorBody{Error: msg, Kind: string(kind)})
}

// decodeDraft reads an optional draft body. An empty body yields nil fields.
func decodeDraft(r *http.Request) (domain.DraftPatch, error) {
	var body domain.DraftPatch
	err := json.NewDecoder(io.LimitReader(r.Body, 64<<10)).Decode(&body)
	if err != nil && !errors.Is(err, io.EOF) {
		return body, domain.E(domain.KindValidation, "", errors.New("invalid JSON body"))
	}
	return body, nil
}

// Health reports liveness.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Index renders the form page and starts a session when needed.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	if _, ok := a.sessions.FromRequest(r); !ok {
		if _, err := a.sessions.Issue(w); err != nil {
			a.logger.Error().Err(err).Msg("failed to issue session")
			http.Error(w, "session error", http.StatusInternalServerError)
			return
		}
	}

	snap := a.form.Snapshot()
	view := pageView{
		Snapshot: snap,
		// Generators only produce image/* data URIs
		Preview: template.URL(snap.PreviewDataURI),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := pageTemplate.Execute(w, view); err != nil {
		a.logger.Error().Err(err).Msg("failed to render page")
	}
}

// State returns the current snapshot.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.form.Snapshot())
}

// UpdateDraft applies field edits.
func (a *App) UpdateDraft(w http.ResponseWriter, r *http.Request) {
	body, err := decodeDraft(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.form.Patch(body); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, a.form.Snapshot())
}

// Submit applies optional field values and starts the pipeline.
func (a *App) Submit(w http.ResponseWriter, r *http.Request) {
	body, err := decodeDraft(r)
	if err != nil {
		a.writeError(w, err)
		return
	}
	if err := a.form.SubmitPatchAsync(a.baseCtx, &body); err != nil {
		a.writeError(w, err)
		return
	}
	a.logger.Info().Str("session", SessionSubject(r.Context())).Msg("submission accepted")
	writeJSON(w, http.StatusAccepted, a.form.Snapshot())
}

// Retry resumes a failed submission.
func (a *App) Retry(w http.ResponseWriter, r *http.Request) {
	if err := a.form.RetryAsync(a.baseCtx); err != nil {
		a.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, a.form.Snapshot())
}

// Wallet returns the wallet session.
func (a *App) Wallet(w http.ResponseWriter, r *http.Request) {
	if a.wallet == nil {
		writeJSON(w, http.StatusOK, wallet.Info{})
		return
	}
	writeJSON(w, http.StatusOK, a.wallet.Info())
}

// LinkQR renders the hosted image URL as a PNG QR code.
func (a *App) LinkQR(w http.ResponseWriter, r *http.Request) {
	url := a.form.HostedURL()
	if url == "" {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "no hosted image yet", Kind: "not_found"})
		return
	}

	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		a.writeError(w, domain.E(domain.KindInternal, "qrcode", err))
		return
	}
	png, err := qr.PNG(256)
	if err != nil {
		a.writeError(w, domain.E(domain.KindInternal, "qrcode", err))
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}
