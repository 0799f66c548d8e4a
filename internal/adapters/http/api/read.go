package api

import (
	"net/http"

	"github.com/aragon/ownership-token-framework/internal/domain/enrich"
	"github.com/aragon/ownership-token-framework/internal/domain/faq"
	"github.com/aragon/ownership-token-framework/internal/domain/token"
)

// tokenView adds the display fields the token table shows.
type tokenView struct {
	token.Token
	ShortAddress string `json:"shortAddress,omitempty"`
	Updated      string `json:"updated,omitempty"`
}

type criterionView struct {
	enrich.Criterion
	NotesHTML string `json:"notesHtml,omitempty"`
}

type metricView struct {
	enrich.Metric
	Criteria []criterionView `json:"criteria"`
}

type questionView struct {
	faq.Question
	AnswerHTML string `json:"answerHtml"`
}

type topicView struct {
	faq.Topic
	Questions []questionView `json:"questions"`
}

type tokenDetail struct {
	Token   tokenView    `json:"token"`
	Metrics []metricView `json:"metrics"`
}

type clientConfig struct {
	FormResetDelayMs int64    `json:"formResetDelayMs"`
	Networks         []string `json:"networks"`
}

// ReadHandler serves the disclosure data.
type ReadHandler struct {
	deps     ReadDependencies
	renderer *Renderer
	errs     *errorWriter
}

// NewReadHandler creates a new read handler.
func NewReadHandler(deps ReadDependencies, renderer *Renderer, errs *errorWriter) *ReadHandler {
	return &ReadHandler{deps: deps, renderer: renderer, errs: errs}
}

func newTokenView(t token.Token) tokenView {
	return tokenView{
		Token:        t,
		ShortAddress: token.TruncateAddress(t.Address),
		Updated:      token.FormatUpdated(t.LastUpdated),
	}
}

func tokenViews(list []token.Token) []tokenView {
	out := make([]tokenView, len(list))
	for i, t := range list {
		out[i] = newTokenView(t)
	}
	return out
}

func (h *ReadHandler) metricViews(list []enrich.Metric) []metricView {
	out := make([]metricView, len(list))
	for i, m := range list {
		criteria := make([]criterionView, len(m.Criteria))
		for j, c := range m.Criteria {
			criteria[j] = criterionView{Criterion: c, NotesHTML: h.renderer.Render(c.Notes)}
		}
		out[i] = metricView{Metric: m, Criteria: criteria}
	}
	return out
}

// HandleFramework handles GET /framework.
func (h *ReadHandler) HandleFramework(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.deps.Framework(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, metrics)
}

// HandleTokens handles GET /tokens?filter=&network=.
func (h *ReadHandler) HandleTokens(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.deps.Tokens(r.Context(), q.Get("filter"), q.Get("network"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenViews(list))
}

// HandleToken handles GET /tokens/{id}.
func (h *ReadHandler) HandleToken(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := h.deps.Token(r.Context(), id)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	metrics, err := h.deps.TokenMetrics(r.Context(), t.ID)
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenDetail{Token: newTokenView(t), Metrics: h.metricViews(metrics)})
}

// HandleTokenMetrics handles GET /tokens/{id}/metrics. Unknown tokens get
// an empty list rather than a 404.
func (h *ReadHandler) HandleTokenMetrics(w http.ResponseWriter, r *http.Request) {
	metrics, err := h.deps.TokenMetrics(r.Context(), r.PathValue("id"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.metricViews(metrics))
}

// HandleSearch handles GET /search?q=.
func (h *ReadHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	found, err := h.deps.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tokenViews(found))
}

// HandleFAQ handles GET /faq.
func (h *ReadHandler) HandleFAQ(w http.ResponseWriter, r *http.Request) {
	topics, err := h.deps.FAQ(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	out := make([]topicView, len(topics))
	for i, t := range topics {
		qs := make([]questionView, len(t.Questions))
		for j, q := range t.Questions {
			qs[j] = questionView{Question: q, AnswerHTML: h.renderer.Render(q.Answer)}
		}
		out[i] = topicView{Topic: t, Questions: qs}
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleConfig handles GET /config, the settings a browser client needs.
func (h *ReadHandler) HandleConfig(w http.ResponseWriter, r *http.Request) {
	nets, err := h.deps.Networks(r.Context())
	if err != nil {
		h.errs.write(w, r, err)
		return
	}
	if nets == nil {
		nets = []string{}
	}
	writeJSON(w, http.StatusOK, clientConfig{
		FormResetDelayMs: h.deps.FormResetDelay().Milliseconds(),
		Networks:         nets,
	})
}
