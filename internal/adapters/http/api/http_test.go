package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/aragon/ownership-token-framework/internal/adapters/http/api"
	service "github.com/aragon/ownership-token-framework/internal/app"
	"github.com/aragon/ownership-token-framework/internal/domain/submission"
	"github.com/aragon/ownership-token-framework/pkg/logger"
)

// mockDependencies serves reads from a real service over the bundled data
// and fakes the two write paths.
type mockDependencies struct {
	*service.Service
	subscribeErr error
	submitErr    error
	lastEmail    string
	lastRequest  submission.Request
}

func (m *mockDependencies) Subscribe(_ context.Context, email string) (submission.SignupResult, error) {
	m.lastEmail = email
	if m.subscribeErr != nil {
		return submission.SignupResult{}, m.subscribeErr
	}
	return submission.SignupResult{OK: true}, nil
}

func (m *mockDependencies) SubmitRequest(_ context.Context, req submission.Request) (submission.SubmitResult, error) {
	m.lastRequest = req
	if m.submitErr != nil {
		return submission.SubmitResult{}, m.submitErr
	}
	return submission.SubmitResult{OK: true}, nil
}

func newMux(started bool) (*http.ServeMux, *mockDependencies) {
	svc := service.New(service.WithLogger(logger.Nop()))
	if started {
		if err := svc.Start(context.Background()); err != nil {
			panic(err)
		}
	}
	deps := &mockDependencies{Service: svc}
	server := api.NewServer(deps, svc, api.WithLogger(logger.Nop()))
	mux := http.NewServeMux()
	server.Register(context.Background(), mux)
	return mux, deps
}

func do(mux http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func decode[T any](w *httptest.ResponseRecorder) T {
	var v T
	So(json.Unmarshal(w.Body.Bytes(), &v), ShouldBeNil)
	return v
}

func TestServer_Register(t *testing.T) {
	Convey("Given a registered API server", t, func() {
		mux, _ := newMux(true)

		Convey("Then the health endpoint should serve metrics", func() {
			w := do(mux, http.MethodGet, "/healthz", "")
			So(w.Code, ShouldEqual, http.StatusOK)
		})

		Convey("Then the stats endpoint should report the snapshot", func() {
			w := do(mux, http.MethodGet, "/stats", "")
			So(w.Code, ShouldEqual, http.StatusOK)
			stats := decode[map[string]any](w)
			So(stats["started"], ShouldEqual, true)
			So(stats["tokens"], ShouldEqual, float64(3))
		})

		Convey("Then every response should carry a request id", func() {
			w := do(mux, http.MethodGet, "/faq", "")
			So(w.Header().Get("X-Request-ID"), ShouldNotBeEmpty)

			req := httptest.NewRequest(http.MethodGet, "/faq", nil)
			req.Header.Set("X-Request-ID", "abc-123")
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, req)
			So(rec.Header().Get("X-Request-ID"), ShouldEqual, "abc-123")
		})

		Convey("Then the wrong method should be refused", func() {
			w := do(mux, http.MethodPost, "/tokens", "{}")
			So(w.Code, ShouldEqual, http.StatusMethodNotAllowed)
		})
	})
}

func TestReadHandlers(t *testing.T) {
	Convey("Given a server over the bundled data", t, func() {
		mux, _ := newMux(true)

		Convey("When requesting the framework", func() {
			w := do(mux, http.MethodGet, "/framework", "")
			metrics := decode[[]map[string]any](w)

			Convey("Then every metric should link into the document", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(metrics), ShouldEqual, 5)
				So(metrics[0]["id"], ShouldEqual, "gov-fdn")
				So(metrics[0]["url"], ShouldEndWith, "#i-governance-foundation")
			})
		})

		Convey("When listing tokens", func() {
			w := do(mux, http.MethodGet, "/tokens", "")
			list := decode[[]map[string]any](w)

			Convey("Then display fields should be added", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(len(list), ShouldEqual, 3)
				So(list[0]["shortAddress"], ShouldEqual, "0x7Fc6...DaE9")
				So(list[0]["updated"], ShouldEqual, "15 January 2026")
			})
		})

		Convey("When filtering tokens", func() {
			w := do(mux, http.MethodGet, "/tokens?filter=UNI&network=ethereum", "")
			list := decode[[]map[string]any](w)

			Convey("Then only matching tokens should be listed", func() {
				So(len(list), ShouldEqual, 1)
				So(list[0]["id"], ShouldEqual, "uniswap")
			})
		})

		Convey("When requesting a token with a different case", func() {
			w := do(mux, http.MethodGet, "/tokens/AAVE", "")
			detail := decode[map[string]any](w)

			Convey("Then the token and its enriched metrics should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(detail["token"].(map[string]any)["id"], ShouldEqual, "aave")
				metrics := detail["metrics"].([]any)
				So(len(metrics), ShouldEqual, 2)
				first := metrics[0].(map[string]any)
				So(first["aboutLink"], ShouldEndWith, "#i-governance-foundation")
				criteria := first["criteria"].([]any)
				So(len(criteria), ShouldBeGreaterThan, 0)
			})
		})

		Convey("When requesting an unknown token", func() {
			w := do(mux, http.MethodGet, "/tokens/nope", "")
			body := decode[map[string]string](w)

			Convey("Then a not found error should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When requesting metrics of an unassessed token", func() {
			w := do(mux, http.MethodGet, "/tokens/nope/metrics", "")

			Convey("Then an empty list should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(w.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When searching", func() {
			w := do(mux, http.MethodGet, "/search?q=un", "")
			found := decode[[]map[string]any](w)
			blank := do(mux, http.MethodGet, "/search?q=+", "")

			Convey("Then subsequence matches should be returned", func() {
				So(len(found), ShouldEqual, 1)
				So(found[0]["id"], ShouldEqual, "uniswap")
				So(strings.TrimSpace(blank.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When requesting the faq", func() {
			w := do(mux, http.MethodGet, "/faq", "")
			topics := decode[[]map[string]any](w)

			Convey("Then answers should be rendered", func() {
				So(len(topics), ShouldEqual, 2)
				q := topics[0]["questions"].([]any)[0].(map[string]any)
				So(q["answerHtml"], ShouldStartWith, "<p>")
			})
		})

		Convey("When requesting the client config", func() {
			w := do(mux, http.MethodGet, "/config", "")
			cfg := decode[map[string]any](w)

			Convey("Then the reset delay and networks should be returned", func() {
				So(cfg["formResetDelayMs"], ShouldEqual, float64(10000))
				So(cfg["networks"], ShouldResemble, []any{"ethereum"})
			})
		})
	})

	Convey("Given a server whose data has not loaded", t, func() {
		mux, _ := newMux(false)

		Convey("Then reads should report not ready", func() {
			w := do(mux, http.MethodGet, "/tokens", "")
			So(w.Code, ShouldEqual, http.StatusServiceUnavailable)
			So(decode[map[string]string](w)["code"], ShouldEqual, "not_ready")
		})
	})
}

func TestSubmitHandlers(t *testing.T) {
	Convey("Given a server with fake submission flows", t, func() {
		mux, deps := newMux(true)

		Convey("When signing up", func() {
			w := do(mux, http.MethodPost, "/newsletter", `{"email":"ada@example.org"}`)

			Convey("Then the address should be forwarded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastEmail, ShouldEqual, "ada@example.org")
				So(decode[map[string]any](w)["ok"], ShouldEqual, true)
			})
		})

		Convey("When the body is not JSON", func() {
			w := do(mux, http.MethodPost, "/newsletter", `email=ada`)

			Convey("Then a bad request should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusBadRequest)
				So(decode[map[string]string](w)["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When submitting a token request", func() {
			w := do(mux, http.MethodPost, "/submit-token",
				`{"name":"Ada","project":"Aave","request":"List","additionalInfo":"DAO","submitterEmail":"ada@example.org"}`)

			Convey("Then every field should be decoded", func() {
				So(w.Code, ShouldEqual, http.StatusOK)
				So(deps.lastRequest.Email, ShouldEqual, "ada@example.org")
				So(deps.lastRequest.AdditionalInfo, ShouldEqual, "DAO")
			})
		})

		Convey("When submissions fail", func() {
			cases := []struct {
				err    error
				status int
				code   string
			}{
				{&submission.Error{Op: "t", Kind: submission.KindValidation, Message: "Missing fields: name"}, http.StatusBadRequest, "validation"},
				{&submission.Error{Op: "t", Kind: submission.KindInProgress, Message: submission.MsgInProgress}, http.StatusConflict, "in_progress"},
				{&submission.Error{Op: "t", Kind: submission.KindRateLimited, Message: submission.MsgRateLimited}, http.StatusTooManyRequests, "rate_limited"},
				{&submission.Error{Op: "t", Kind: submission.KindConfiguration, Message: submission.MsgConfiguration}, http.StatusInternalServerError, "configuration"},
				{&submission.Error{Op: "t", Kind: submission.KindUnavailable, Message: submission.MsgSubmissionFailed, Err: errors.New("notion said: secret detail")}, http.StatusBadGateway, "unavailable"},
			}

			Convey("Then each kind should map to its status with only the user message", func() {
				for _, c := range cases {
					deps.submitErr = c.err
					w := do(mux, http.MethodPost, "/submit-token", `{}`)
					So(w.Code, ShouldEqual, c.status)
					body := decode[map[string]string](w)
					So(body["code"], ShouldEqual, c.code)
					So(body["message"], ShouldEqual, c.err.(*submission.Error).Message)
					So(w.Body.String(), ShouldNotContainSubstring, "secret detail")
				}
			})
		})

		Convey("When an unclassified error escapes", func() {
			deps.subscribeErr = errors.New("boom")
			w := do(mux, http.MethodPost, "/newsletter", `{"email":"ada@example.org"}`)

			Convey("Then a generic internal error should be returned", func() {
				So(w.Code, ShouldEqual, http.StatusInternalServerError)
				body := decode[map[string]string](w)
				So(body["code"], ShouldEqual, "internal_error")
				So(body["message"], ShouldEqual, submission.MsgUnexpected)
			})
		})
	})
}

func TestRenderer(t *testing.T) {
	Convey("Given a markdown renderer", t, func() {
		r := api.NewRenderer()

		Convey("Then markdown should become HTML", func() {
			So(r.Render("**bold** and [docs](https://example.org)"), ShouldContainSubstring, "<strong>bold</strong>")
			So(r.Render("[docs](https://example.org)"), ShouldContainSubstring, `href="https://example.org"`)
		})

		Convey("Then raw HTML and scripts should be dropped", func() {
			out := r.Render("hi <script>alert(1)</script> <img src=x onerror=alert(1)>")
			So(out, ShouldNotContainSubstring, "<script")
			So(out, ShouldNotContainSubstring, "onerror")
		})

		Convey("Then blank input should render to nothing", func() {
			So(r.Render("  \n"), ShouldEqual, "")
		})
	})
}
