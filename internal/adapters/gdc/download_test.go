package gdc_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/gdclab/brcaloader/internal/adapters/gdc"
	. "github.com/smartystreets/goconvey/convey"
)

const subtypeBody = "Sample_ID\tPAM50_Call\nTCGA-1\tLumA\nTCGA-2\tBasal\n"

func TestDownloadFile(t *testing.T) {
	Convey("Given a data endpoint", t, func() {
		dir := t.TempDir()
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls.Add(1)
			w.Write([]byte("gene\tcount\nBRCA1\t42\n"))
		}))
		defer srv.Close()

		c := newTestClient(srv, gdc.WithDataDir(dir))
		fileID := "0b8472b1-8a2f-4f3e-9c5d-1a2b3c4d5e6f"

		Convey("When downloading a new file", func() {
			path, err := c.DownloadFile(context.Background(), fileID, "expr.tsv")

			Convey("Then the payload should land in the data directory", func() {
				So(err, ShouldBeNil)
				So(path, ShouldEqual, filepath.Join(dir, "expr.tsv"))
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldContainSubstring, "BRCA1")
				So(calls.Load(), ShouldEqual, 1)
			})
		})

		Convey("When the file already exists locally", func() {
			path := filepath.Join(dir, "expr.tsv")
			So(os.WriteFile(path, []byte("local copy"), 0o600), ShouldBeNil)

			got, err := c.DownloadFile(context.Background(), fileID, "expr.tsv")

			Convey("Then it should be trusted without any request", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, path)
				So(calls.Load(), ShouldEqual, 0)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual, "local copy")
			})
		})

		Convey("When the file id is not a UUID", func() {
			_, err := c.DownloadFile(context.Background(), "not-a-uuid", "expr.tsv")

			Convey("Then the download should be rejected up front", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, gdc.ErrInvalidFileID.Error())
				So(calls.Load(), ShouldEqual, 0)
			})
		})
	})
}

func TestDownloadSubtypeFile(t *testing.T) {
	Convey("Given publication mirrors", t, func() {
		dir := t.TempDir()

		Convey("When the primary URL serves data", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte(subtypeBody))
			}))
			defer srv.Close()

			c := newTestClient(srv, gdc.WithDataDir(dir),
				gdc.WithSubtypeURLs(srv.URL+"/primary", srv.URL+"/fallback"))

			path, err := c.DownloadSubtypeFile(context.Background())

			Convey("Then the file should be persisted under its canonical name", func() {
				So(err, ShouldBeNil)
				So(filepath.Base(path), ShouldEqual, gdc.SubtypeFileName)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual, subtypeBody)
			})
		})

		Convey("When the primary URL serves an HTML landing page", func() {
			var fallbackCalls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path == "/primary" {
					w.Header().Set("Content-Type", "text/html; charset=utf-8")
					w.Write([]byte("<!DOCTYPE html><html>moved</html>"))
					return
				}
				fallbackCalls.Add(1)
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte(subtypeBody))
			}))
			defer srv.Close()

			c := newTestClient(srv, gdc.WithDataDir(dir),
				gdc.WithSubtypeURLs(srv.URL+"/primary", srv.URL+"/fallback"))

			path, err := c.DownloadSubtypeFile(context.Background())

			Convey("Then the fallback should be tried exactly once and succeed", func() {
				So(err, ShouldBeNil)
				So(fallbackCalls.Load(), ShouldEqual, 1)
				data, readErr := os.ReadFile(path)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual, subtypeBody)
			})
		})

		Convey("When both URLs serve HTML", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/html")
				w.Write([]byte("<html>gone</html>"))
			}))
			defer srv.Close()

			c := newTestClient(srv, gdc.WithDataDir(dir),
				gdc.WithSubtypeURLs(srv.URL+"/primary", srv.URL+"/fallback"))

			_, err := c.DownloadSubtypeFile(context.Background())

			Convey("Then a typed HTML payload error should surface", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, gdc.ErrHTMLPayload.Error())
			})
		})

		Convey("When the payload is HTML despite a clean content type", func() {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("<!DOCTYPE html><html>disguised error page</html>"))
			}))
			defer srv.Close()

			c := newTestClient(srv, gdc.WithDataDir(dir),
				gdc.WithSubtypeURLs(srv.URL+"/primary", ""))

			_, err := c.DownloadSubtypeFile(context.Background())

			Convey("Then the written payload check should catch it", func() {
				So(err, ShouldNotBeNil)
				So(err.Error(), ShouldContainSubstring, gdc.ErrHTMLPayload.Error())
			})
		})

		Convey("When a valid local copy already exists", func() {
			path := filepath.Join(dir, gdc.SubtypeFileName)
			So(os.WriteFile(path, []byte(subtypeBody), 0o600), ShouldBeNil)

			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
			}))
			defer srv.Close()

			c := newTestClient(srv, gdc.WithDataDir(dir),
				gdc.WithSubtypeURLs(srv.URL+"/primary", srv.URL+"/fallback"))

			got, err := c.DownloadSubtypeFile(context.Background())

			Convey("Then it should short-circuit without any request", func() {
				So(err, ShouldBeNil)
				So(got, ShouldEqual, path)
				So(calls.Load(), ShouldEqual, 0)
			})
		})

		Convey("When the local copy is a persisted HTML page", func() {
			path := filepath.Join(dir, gdc.SubtypeFileName)
			So(os.WriteFile(path, []byte("<html>old error page</html>"), 0o600), ShouldBeNil)

			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte(subtypeBody))
			}))
			defer srv.Close()

			c := newTestClient(srv, gdc.WithDataDir(dir),
				gdc.WithSubtypeURLs(srv.URL+"/primary", ""))

			got, err := c.DownloadSubtypeFile(context.Background())

			Convey("Then it should be replaced with real data", func() {
				So(err, ShouldBeNil)
				data, readErr := os.ReadFile(got)
				So(readErr, ShouldBeNil)
				So(string(data), ShouldEqual, subtypeBody)
			})
		})
	})
}
