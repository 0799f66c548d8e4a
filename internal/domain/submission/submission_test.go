package submission_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	. "github.com/smartystreets/goconvey/convey"

	"github.com/aragon/ownership-token-framework/internal/domain/dedupe"
	"github.com/aragon/ownership-token-framework/internal/domain/submission"
	"github.com/aragon/ownership-token-framework/pkg/logger"
)

type fakeList struct {
	configured bool
	reply      submission.ProviderReply
	err        error
	calls      int
	entered    chan struct{}
	block      chan struct{}
}

func (f *fakeList) Configured() bool { return f.configured }

func (f *fakeList) Subscribe(ctx context.Context, email string) (submission.ProviderReply, error) {
	f.calls++
	if f.entered != nil {
		close(f.entered)
	}
	if f.block != nil {
		<-f.block
	}
	return f.reply, f.err
}

type fakeWorkspace struct {
	configured  bool
	reply       submission.ProviderReply
	err         error
	got         []submission.Request
	submittedAt time.Time
}

func (f *fakeWorkspace) Configured() bool { return f.configured }

func (f *fakeWorkspace) CreateRequest(ctx context.Context, req submission.Request, at time.Time) (submission.ProviderReply, error) {
	f.got = append(f.got, req)
	f.submittedAt = at
	return f.reply, f.err
}

type fakeNotifier struct {
	mu         sync.Mutex
	configured bool
	err        error
	failures   []submission.Failure
}

func (f *fakeNotifier) Configured() bool { return f.configured }

func (f *fakeNotifier) Notify(ctx context.Context, fl submission.Failure) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failures = append(f.failures, fl)
	return f.err
}

func validRequest() submission.Request {
	return submission.Request{
		Name:           "Ada",
		Project:        "Aave",
		Request:        "Please list AAVE",
		AdditionalInfo: "Governed by the DAO",
		Email:          "ada@example.org",
	}
}

func TestSubscribe(t *testing.T) {
	Convey("Given a pipeline with a configured mailing list", t, func() {
		list := &fakeList{configured: true, reply: submission.ProviderReply{StatusCode: 200}}
		p := submission.New(list, nil, submission.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("When the provider accepts the address", func() {
			res, err := p.Subscribe(ctx, " ada@example.org ")

			Convey("Then the signup should succeed without the flag", func() {
				So(err, ShouldBeNil)
				So(res, ShouldResemble, submission.SignupResult{OK: true})
				So(list.calls, ShouldEqual, 1)
			})
		})

		Convey("When the address is blank", func() {
			_, err := p.Subscribe(ctx, "   ")

			Convey("Then validation should fail before calling out", func() {
				So(errors.Is(err, submission.ErrValidation), ShouldBeTrue)
				So(submission.UserMessage(err), ShouldEqual, submission.MsgEmailRequired)
				So(list.calls, ShouldEqual, 0)
			})
		})

		Convey("When the same address is submitted twice", func() {
			first, err1 := p.Subscribe(ctx, "ada@example.org")
			list.reply = submission.ProviderReply{StatusCode: 409, Code: "MEMBER_EXISTS_WITH_EMAIL_ADDRESS"}
			second, err2 := p.Subscribe(ctx, "ada@example.org")

			Convey("Then the second call should report alreadySubscribed", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldResemble, submission.SignupResult{OK: true})
				So(second, ShouldResemble, submission.SignupResult{OK: true, AlreadySubscribed: true})
			})
		})

		Convey("When the provider is unreachable", func() {
			list.err = errors.New("dial tcp: connection refused")
			_, err := p.Subscribe(ctx, "ada@example.org")

			Convey("Then the generic signup message should be returned", func() {
				So(errors.Is(err, submission.ErrUnavailable), ShouldBeTrue)
				So(submission.UserMessage(err), ShouldEqual, submission.MsgSignupFailed)
			})
		})
	})

	Convey("Given a pipeline without mailing list credentials", t, func() {
		list := &fakeList{}
		p := submission.New(list, nil, submission.WithLogger(logger.Nop()))

		Convey("Then signup should fail with a configuration error", func() {
			_, err := p.Subscribe(context.Background(), "ada@example.org")
			So(errors.Is(err, submission.ErrConfiguration), ShouldBeTrue)
			So(submission.KindOf(err), ShouldEqual, submission.KindConfiguration)
			So(submission.UserMessage(err), ShouldEqual, submission.MsgConfiguration)
			So(list.calls, ShouldEqual, 0)
		})
	})

	Convey("Given a signup already in flight for an address", t, func() {
		list := &fakeList{
			configured: true,
			reply:      submission.ProviderReply{StatusCode: 200},
			entered:    make(chan struct{}),
			block:      make(chan struct{}),
		}
		p := submission.New(list, nil,
			submission.WithLogger(logger.Nop()),
			submission.WithGuard(dedupe.NewInMemoryGuard()),
		)

		done := make(chan error, 1)
		go func() {
			_, err := p.Subscribe(context.Background(), "ada@example.org")
			done <- err
		}()
		<-list.entered

		Convey("Then an overlapping signup should be refused", func() {
			_, err := p.Subscribe(context.Background(), "ADA@example.org")
			close(list.block)

			So(errors.Is(err, submission.ErrInProgress), ShouldBeTrue)
			So(submission.KindOf(err), ShouldEqual, submission.KindInProgress)
			So(<-done, ShouldBeNil)
		})
	})
}

func TestClassifySignup(t *testing.T) {
	Convey("Given provider replies", t, func() {
		list := &fakeList{configured: true}
		p := submission.New(list, nil, submission.WithLogger(logger.Nop()))
		subscribe := func(reply submission.ProviderReply) (submission.SignupResult, error) {
			list.reply = reply
			return p.Subscribe(context.Background(), "ada@example.org")
		}

		Convey("Then any 2xx should succeed", func() {
			res, err := subscribe(submission.ProviderReply{StatusCode: 201})
			So(err, ShouldBeNil)
			So(res.OK, ShouldBeTrue)
		})

		Convey("Then already-a-member codes should succeed with the flag", func() {
			for _, code := range []string{"MEMBER_EXISTS", "ALREADY_SUBSCRIBED", "MEMBER_ALREADY_SUBSCRIBED"} {
				res, err := subscribe(submission.ProviderReply{StatusCode: 400, Code: code})
				So(err, ShouldBeNil)
				So(res.AlreadySubscribed, ShouldBeTrue)
			}
		})

		Convey("Then validation errors should surface the provider message", func() {
			_, err := subscribe(submission.ProviderReply{StatusCode: 400, Code: "INVALID_PARAMETERS", Message: "Email address is invalid."})
			So(errors.Is(err, submission.ErrValidation), ShouldBeTrue)
			So(submission.UserMessage(err), ShouldEqual, "Email address is invalid.")
		})

		Convey("Then validation errors without a message should use the default", func() {
			_, err := subscribe(submission.ProviderReply{StatusCode: 422})
			So(submission.UserMessage(err), ShouldEqual, submission.MsgInvalidEmail)
		})

		Convey("Then credential problems should not leak details", func() {
			_, err := subscribe(submission.ProviderReply{StatusCode: 401, Code: "API_KEY_INVALID", Message: "Your API key abc123 is invalid"})
			So(errors.Is(err, submission.ErrConfiguration), ShouldBeTrue)
			So(submission.UserMessage(err), ShouldEqual, submission.MsgConfiguration)

			_, err = subscribe(submission.ProviderReply{StatusCode: 404})
			So(submission.KindOf(err), ShouldEqual, submission.KindConfiguration)
		})

		Convey("Then rate limits should ask to retry shortly", func() {
			_, err := subscribe(submission.ProviderReply{StatusCode: 429})
			So(errors.Is(err, submission.ErrRateLimited), ShouldBeTrue)
			So(submission.UserMessage(err), ShouldEqual, submission.MsgRateLimited)

			_, err = subscribe(submission.ProviderReply{StatusCode: 503, Code: "RATE_LIMITED"})
			So(submission.KindOf(err), ShouldEqual, submission.KindRateLimited)
		})

		Convey("Then anything else should use the generic message", func() {
			_, err := subscribe(submission.ProviderReply{StatusCode: 500, Body: "<html>oops</html>"})
			So(errors.Is(err, submission.ErrUnavailable), ShouldBeTrue)
			So(submission.UserMessage(err), ShouldEqual, submission.MsgSignupFailed)
			So(submission.IsProviderStatus(err, 500), ShouldBeTrue)
		})

		Convey("Then conflict codes should win over validation statuses", func() {
			res, err := subscribe(submission.ProviderReply{StatusCode: 422, Code: "MEMBER_EXISTS"})
			So(err, ShouldBeNil)
			So(res.AlreadySubscribed, ShouldBeTrue)
		})
	})
}

func TestSubmitRequest(t *testing.T) {
	Convey("Given a pipeline with a workspace and a fallback channel", t, func() {
		clock := clockwork.NewFakeClockAt(time.Date(2026, 1, 15, 9, 30, 0, 0, time.UTC))
		ws := &fakeWorkspace{configured: true, reply: submission.ProviderReply{StatusCode: 200}}
		notifier := &fakeNotifier{configured: true}
		p := submission.New(nil, ws,
			submission.WithNotifier(notifier),
			submission.WithClock(clock),
			submission.WithLogger(logger.Nop()),
			submission.WithIDGenerator(func() string { return "sub-1" }),
		)
		ctx := context.Background()

		Convey("When the workspace stores the request", func() {
			res, err := p.SubmitRequest(ctx, validRequest())

			Convey("Then it should succeed without a notification", func() {
				So(err, ShouldBeNil)
				So(res.OK, ShouldBeTrue)
				So(notifier.failures, ShouldBeEmpty)
				So(ws.got[0].Project, ShouldEqual, "Aave")
				So(ws.submittedAt.Equal(clock.Now()), ShouldBeTrue)
			})
		})

		Convey("When fields are missing", func() {
			req := validRequest()
			req.Name = " "
			req.AdditionalInfo = ""
			_, err := p.SubmitRequest(ctx, req)

			Convey("Then validation should list them in form order", func() {
				So(errors.Is(err, submission.ErrValidation), ShouldBeTrue)
				So(submission.UserMessage(err), ShouldEqual, "Missing fields: name, additionalInfo")
				So(ws.got, ShouldBeEmpty)
				So(notifier.failures, ShouldBeEmpty)
			})
		})

		Convey("When the workspace rejects the request", func() {
			ws.reply = submission.ProviderReply{
				StatusCode: 400,
				Status:     "400 Bad Request",
				Code:       "validation_error",
				Message:    "Your email is not a property that exists.",
				Body:       `{"object":"error"}`,
			}
			_, err := p.SubmitRequest(ctx, validRequest())

			Convey("Then the user should get the generic message", func() {
				So(errors.Is(err, submission.ErrUnavailable), ShouldBeTrue)
				So(submission.UserMessage(err), ShouldEqual, submission.MsgSubmissionFailed)
			})

			Convey("Then the fallback channel should get the detail and the payload", func() {
				So(len(notifier.failures), ShouldEqual, 1)
				f := notifier.failures[0]
				So(f.SubmissionID, ShouldEqual, "sub-1")
				So(f.Detail, ShouldEqual, "*Status:* 400 Bad Request\n*Code:* validation_error\n*Message:* Your email is not a property that exists.")
				So(f.Request, ShouldResemble, validRequest())
			})
		})

		Convey("When the provider reply has no body details", func() {
			ws.reply = submission.ProviderReply{StatusCode: 502}
			_, _ = p.SubmitRequest(ctx, validRequest())

			Convey("Then defaults should fill the detail", func() {
				So(notifier.failures[0].Detail, ShouldEqual, "*Status:* 502 Bad Gateway\n*Code:* unknown\n*Message:* No message provided")
			})
		})

		Convey("When the workspace is unreachable", func() {
			ws.err = errors.New("connection reset")
			_, err := p.SubmitRequest(ctx, validRequest())

			Convey("Then the failure should still be mirrored", func() {
				So(submission.UserMessage(err), ShouldEqual, submission.MsgSubmissionFailed)
				So(len(notifier.failures), ShouldEqual, 1)
				So(notifier.failures[0].Detail, ShouldContainSubstring, "connection reset")
			})
		})

		Convey("When the fallback channel is also down", func() {
			ws.reply = submission.ProviderReply{StatusCode: 500}
			notifier.err = errors.New("webhook unreachable")
			_, err := p.SubmitRequest(ctx, validRequest())

			Convey("Then the primary error should be returned", func() {
				So(errors.Is(err, submission.ErrUnavailable), ShouldBeTrue)
				So(err.Error(), ShouldNotContainSubstring, "webhook")
				So(len(notifier.failures), ShouldEqual, 1)
			})
		})

		Convey("When the caller context is cancelled after the failure", func() {
			cctx, cancel := context.WithCancel(ctx)
			ws.reply = submission.ProviderReply{StatusCode: 500}
			_, _ = p.SubmitRequest(cctx, validRequest())
			cancel()

			Convey("Then the notification should have been attempted", func() {
				So(len(notifier.failures), ShouldEqual, 1)
			})
		})
	})

	Convey("Given a pipeline without workspace credentials", t, func() {
		ws := &fakeWorkspace{}
		notifier := &fakeNotifier{configured: true}
		p := submission.New(nil, ws, submission.WithNotifier(notifier), submission.WithLogger(logger.Nop()))

		_, err := p.SubmitRequest(context.Background(), validRequest())

		Convey("Then it should fail with a configuration error", func() {
			So(errors.Is(err, submission.ErrConfiguration), ShouldBeTrue)
			So(ws.got, ShouldBeEmpty)
		})

		Convey("Then the failure should be mirrored with the configuration detail", func() {
			So(len(notifier.failures), ShouldEqual, 1)
			So(notifier.failures[0].Detail, ShouldEqual, "Server not configured")
		})
	})

	Convey("Given a pipeline without a fallback channel", t, func() {
		ws := &fakeWorkspace{configured: true, reply: submission.ProviderReply{StatusCode: 500}}
		notifier := &fakeNotifier{configured: false}
		p := submission.New(nil, ws, submission.WithNotifier(notifier), submission.WithLogger(logger.Nop()))

		_, err := p.SubmitRequest(context.Background(), validRequest())

		Convey("Then the notification should be skipped", func() {
			So(errors.Is(err, submission.ErrUnavailable), ShouldBeTrue)
			So(notifier.failures, ShouldBeEmpty)
		})
	})
}

func TestErrors(t *testing.T) {
	Convey("Given classified errors", t, func() {
		cause := errors.New("boom")
		err := &submission.Error{Op: "op", Kind: submission.KindRateLimited, Message: "slow down", Err: cause}

		Convey("Then errors.Is should match the kind sentinel and the cause", func() {
			So(errors.Is(err, submission.ErrRateLimited), ShouldBeTrue)
			So(errors.Is(err, submission.ErrValidation), ShouldBeFalse)
			So(errors.Is(err, cause), ShouldBeTrue)
		})

		Convey("Then the error text should include the op and message", func() {
			So(err.Error(), ShouldEqual, "op: slow down: boom")
		})

		Convey("Then unclassified errors should get safe defaults", func() {
			plain := errors.New("raw provider body")
			So(submission.KindOf(plain), ShouldEqual, submission.KindUnavailable)
			So(submission.UserMessage(plain), ShouldEqual, submission.MsgUnexpected)
		})
	})
}
