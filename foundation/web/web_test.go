package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ardanlabs/blockvault/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_Handle(t *testing.T) {
	type payload struct {
		Data string `json:"data"`
	}

	var order []string
	mw := func(name string) web.Middleware {
		return func(handler web.Handler) web.Handler {
			return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				order = append(order, name)
				return handler(ctx, w, r)
			}
		}
	}

	shutdown := make(chan os.Signal, 1)
	app := web.NewApp(shutdown, mw("app"))

	app.Handle(http.MethodPost, "v1", "/echo/:id", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		if web.GetTraceID(ctx) == "" {
			return errors.New("missing trace id")
		}

		var p payload
		if err := web.Decode(r, &p); err != nil {
			return err
		}
		p.Data = web.Param(r, "id") + ":" + p.Data

		return web.Respond(ctx, w, p, http.StatusOK)
	}, mw("route"))

	app.Handle(http.MethodGet, "v1", "/crash", func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.NewShutdownError("integrity issue")
	})

	t.Log("Given the need to route requests through the app.")
	{
		t.Logf("\tTest 0:\tWhen handling a request with a parameter.")
		{
			r := httptest.NewRequest(http.MethodPost, "/v1/echo/7", strings.NewReader(`{"data":"hello"}`))
			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest 0:\tShould get a 200 status: %d", failed, w.Code)
			}
			t.Logf("\t%s\tTest 0:\tShould get a 200 status.", success)

			if got, exp := strings.TrimSpace(w.Body.String()), `{"data":"7:hello"}`; got != exp {
				t.Fatalf("\t%s\tTest 0:\tShould echo the parameter and body: got %s, exp %s", failed, got, exp)
			}
			t.Logf("\t%s\tTest 0:\tShould echo the parameter and body.", success)

			if diff := cmp.Diff([]string{"app", "route"}, order); diff != "" {
				t.Fatalf("\t%s\tTest 0:\tShould run app middleware first:\n%s", failed, diff)
			}
			t.Logf("\t%s\tTest 0:\tShould run app middleware first.", success)
		}

		t.Logf("\tTest 1:\tWhen a handler returns a shutdown error.")
		{
			r := httptest.NewRequest(http.MethodGet, "/v1/crash", nil)
			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			select {
			case <-shutdown:
				t.Logf("\t%s\tTest 1:\tShould signal a shutdown.", success)
			case <-time.After(time.Second):
				t.Fatalf("\t%s\tTest 1:\tShould signal a shutdown.", failed)
			}
		}
	}
}

func Test_ReadBody(t *testing.T) {
	t.Log("Given the need to limit the size of a request body.")
	{
		r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("0123456789"))
		if _, err := web.ReadBody(r, 5); err == nil {
			t.Fatalf("\t%s\tShould reject a body over the limit.", failed)
		}
		t.Logf("\t%s\tShould reject a body over the limit.", success)

		r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader("01234"))
		data, err := web.ReadBody(r, 5)
		if err != nil || string(data) != "01234" {
			t.Fatalf("\t%s\tShould read a body at the limit: %q %v", failed, data, err)
		}
		t.Logf("\t%s\tShould read a body at the limit.", success)
	}
}
