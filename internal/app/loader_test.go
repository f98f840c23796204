package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gdclab/brcaloader/internal/adapters/catalog"
	"github.com/gdclab/brcaloader/internal/adapters/gdc"
	"github.com/gdclab/brcaloader/internal/adapters/tsv"
	"github.com/gdclab/brcaloader/internal/app"
	"github.com/gdclab/brcaloader/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// apiStub serves the metadata endpoints with canned bodies and counts calls
// per route. The files and cases endpoints each back two distinct queries,
// told apart by their query-string parameters.
type apiStub struct {
	manifestBody    string
	clinicalBody    string
	annotationsBody string
	candidatesBody  string
	probeBody       string
	subtypeFileBody string

	manifestCalls   atomic.Int32
	candidateCalls  atomic.Int32
	probeCalls      atomic.Int32
	subtypeDLCalls  atomic.Int32
	annotationCalls atomic.Int32
}

func (s *apiStub) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case r.URL.Path == "/files" && strings.Contains(q.Get("filters"), "data_category"):
			s.candidateCalls.Add(1)
			w.Write([]byte(s.candidatesBody))
		case r.URL.Path == "/files":
			s.manifestCalls.Add(1)
			w.Write([]byte(s.manifestBody))
		case r.URL.Path == "/cases" && strings.Contains(q.Get("fields"), "molecular_subtype_method"):
			s.probeCalls.Add(1)
			w.Write([]byte(s.probeBody))
		case r.URL.Path == "/cases":
			w.Write([]byte(s.clinicalBody))
		case r.URL.Path == "/annotations":
			s.annotationCalls.Add(1)
			w.Write([]byte(s.annotationsBody))
		case r.URL.Path == "/subtype-file":
			s.subtypeDLCalls.Add(1)
			w.Header().Set("Content-Type", "text/plain")
			w.Write([]byte(s.subtypeFileBody))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
}

func newStub() *apiStub {
	return &apiStub{
		manifestBody: `{"data":{"hits":[
			{"id":"f1","file_name":"a.tsv","file_size":100,"cases":[{"case_id":"c1"}]},
			{"id":"f2","file_name":"b.tsv","file_size":200,"cases":[{"case_id":"c2"}]}
		]}}`,
		clinicalBody: `{"data":{"hits":[
			{"id":"c1","demographic":{"gender":"female","vital_status":"Alive"}},
			{"id":"c2"}
		]}}`,
		annotationsBody: `{"data":{"hits":[]}}`,
		candidatesBody:  `{"data":{"hits":[]}}`,
		probeBody:       `{"data":{"hits":[{"id":"c1"}]}}`,
		subtypeFileBody: "Sample_ID\tPAM50_Call\nTCGA-1\tLumA\nTCGA-2\tBasal\nTCGA-3\tLumA\n",
	}
}

func newLoader(srv *httptest.Server, dir string, opts ...app.Option) *app.Loader {
	client := gdc.New(
		gdc.WithBaseURL(srv.URL),
		gdc.WithHTTPClient(srv.Client()),
		gdc.WithDataDir(dir),
		gdc.WithBackoffBase(time.Millisecond),
		gdc.WithSubtypeURLs(srv.URL+"/subtype-file", ""),
	)
	base := []app.Option{app.WithClient(client), app.WithDataDir(dir)}
	return app.New(append(base, opts...)...)
}

func TestLoadAll(t *testing.T) {
	Convey("Given a healthy API with PAM50 annotations", t, func() {
		stub := newStub()
		stub.annotationsBody = `{"data":{"hits":[
			{"case_id":"c1","annotation_type":"PAM50","entity_id":"e1"},
			{"case_id":"c2","annotation_type":"PAM50","entity_id":"e2"}
		]}}`
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()
		dir := t.TempDir()

		Convey("When running the full pipeline", func() {
			summary, err := newLoader(srv, dir).LoadAll(context.Background())

			Convey("Then the summary should report every table", func() {
				So(err, ShouldBeNil)
				So(summary.Files, ShouldEqual, 2)
				So(summary.Cases, ShouldEqual, 2)
				So(summary.Subtypes, ShouldEqual, 2)
				So(summary.SubtypeSource, ShouldEqual, app.SourceAnnotations)
				So(len(summary.Outputs), ShouldEqual, 3)
			})

			Convey("Then all three tables should exist on disk", func() {
				So(err, ShouldBeNil)
				rows, readErr := tsv.Read(filepath.Join(dir, "file_manifest.tsv"))
				So(readErr, ShouldBeNil)
				So(len(rows), ShouldEqual, 3)

				rows, readErr = tsv.Read(filepath.Join(dir, "clinical_data.tsv"))
				So(readErr, ShouldBeNil)
				So(len(rows), ShouldEqual, 3)

				rows, readErr = tsv.Read(filepath.Join(dir, "pam50_subtypes.tsv"))
				So(readErr, ShouldBeNil)
				So(rows[1][1], ShouldEqual, "PAM50")
			})

			Convey("Then the annotations hit should short-circuit later stages", func() {
				So(err, ShouldBeNil)
				So(stub.annotationCalls.Load(), ShouldEqual, 1)
				So(stub.candidateCalls.Load(), ShouldEqual, 0)
				So(stub.probeCalls.Load(), ShouldEqual, 0)
				So(stub.subtypeDLCalls.Load(), ShouldEqual, 0)
			})
		})
	})

	Convey("Given an API without annotations but with candidate files", t, func() {
		stub := newStub()
		stub.candidatesBody = `{"data":{"hits":[
			{"id":"f9","file_name":"BRCA_PAM50_assignments.txt","cases":[{"case_id":"c9"}]}
		]}}`
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()
		dir := t.TempDir()

		Convey("When running the full pipeline with auto-download", func() {
			summary, err := newLoader(srv, dir, app.WithAutoDownload(true)).LoadAll(context.Background())

			Convey("Then the candidate manifest should be listed as an output", func() {
				So(err, ShouldBeNil)
				So(summary.SubtypeSource, ShouldEqual, app.SourceSupplementary)
				So(len(summary.Outputs), ShouldEqual, 4)
				So(summary.Outputs, ShouldContain, filepath.Join(dir, "pam50_files_manifest.tsv"))
				So(summary.Outputs, ShouldContain, filepath.Join(dir, "pam50_subtypes.tsv"))
			})
		})
	})

	Convey("Given an API whose files endpoint is down", t, func() {
		stub := newStub()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/files" {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			stub.handler().ServeHTTP(w, r)
		}))
		defer srv.Close()

		Convey("When running the full pipeline", func() {
			_, err := newLoader(srv, t.TempDir()).LoadAll(context.Background())

			Convey("Then the run should fail outright", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})
}

func TestResolveSubtypes(t *testing.T) {
	Convey("Given no annotations and auto-download enabled", t, func() {
		stub := newStub()
		stub.candidatesBody = `{"data":{"hits":[
			{"id":"f9","file_name":"BRCA_PAM50_assignments.txt","cases":[{"case_id":"c9"}]},
			{"id":"f10","file_name":"clinical_followup.txt"}
		]}}`
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()
		dir := t.TempDir()

		Convey("When resolving subtypes", func() {
			result := newLoader(srv, dir, app.WithAutoDownload(true)).ResolveSubtypes(context.Background())

			Convey("Then the supplementary file should win", func() {
				So(result.Source, ShouldEqual, app.SourceSupplementary)
				So(result.Count(), ShouldEqual, 3)
				So(result.Subtypes[0].PAM50Subtype, ShouldEqual, "LumA")
				So(result.CandidatesWritten, ShouldBeTrue)
			})

			Convey("Then every earlier stage should have run", func() {
				So(stub.annotationCalls.Load(), ShouldEqual, 1)
				So(stub.candidateCalls.Load(), ShouldEqual, 1)
				So(stub.probeCalls.Load(), ShouldEqual, 1)
				So(stub.subtypeDLCalls.Load(), ShouldEqual, 1)
			})

			Convey("Then only matching candidates should be in the manifest", func() {
				rows, err := tsv.Read(filepath.Join(dir, "pam50_files_manifest.tsv"))
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 2)
				So(rows[1][1], ShouldEqual, "BRCA_PAM50_assignments.txt")
			})

			Convey("Then the parsed table should be persisted", func() {
				rows, err := tsv.Read(filepath.Join(dir, "pam50_subtypes.tsv"))
				So(err, ShouldBeNil)
				So(len(rows), ShouldEqual, 4)
			})
		})
	})

	Convey("Given an annotations endpoint that fails outright", t, func() {
		stub := newStub()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/annotations" {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			stub.handler().ServeHTTP(w, r)
		}))
		defer srv.Close()

		Convey("When resolving subtypes", func() {
			result := newLoader(srv, t.TempDir()).ResolveSubtypes(context.Background())

			Convey("Then the failure should degrade, not propagate", func() {
				So(result.Source, ShouldEqual, app.SourceNone)
				So(result.Count(), ShouldEqual, 0)
			})

			Convey("Then the later stages should still run", func() {
				So(stub.candidateCalls.Load(), ShouldEqual, 1)
				So(stub.probeCalls.Load(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given an annotations endpoint with a malformed envelope", t, func() {
		stub := newStub()
		stub.annotationsBody = `{"message":"maintenance"}`
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()

		Convey("When resolving subtypes", func() {
			result := newLoader(srv, t.TempDir()).ResolveSubtypes(context.Background())

			Convey("Then the missing hits array should degrade, not propagate", func() {
				So(result.Source, ShouldEqual, app.SourceNone)
				So(result.Count(), ShouldEqual, 0)
				So(stub.candidateCalls.Load(), ShouldEqual, 1)
				So(stub.probeCalls.Load(), ShouldEqual, 1)
			})
		})
	})

	Convey("Given no annotations and auto-download disabled", t, func() {
		stub := newStub()
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()
		dir := t.TempDir()

		Convey("When resolving subtypes", func() {
			result := newLoader(srv, dir, app.WithAutoDownload(false)).ResolveSubtypes(context.Background())

			Convey("Then the result should degrade to empty, not error", func() {
				So(result.Source, ShouldEqual, app.SourceNone)
				So(result.Count(), ShouldEqual, 0)
				So(stub.subtypeDLCalls.Load(), ShouldEqual, 0)

				_, statErr := os.Stat(filepath.Join(dir, "pam50_subtypes.tsv"))
				So(os.IsNotExist(statErr), ShouldBeTrue)
			})
		})
	})

	Convey("Given a supplementary download that serves HTML", t, func() {
		stub := newStub()
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/subtype-file" {
				w.Header().Set("Content-Type", "text/plain")
				w.Write([]byte("<!DOCTYPE html><html>error page</html>"))
				return
			}
			stub.handler().ServeHTTP(w, r)
		}))
		defer srv.Close()

		Convey("When resolving subtypes", func() {
			result := newLoader(srv, t.TempDir(), app.WithAutoDownload(true)).ResolveSubtypes(context.Background())

			Convey("Then the stage failure should degrade to an empty result", func() {
				So(result.Source, ShouldEqual, app.SourceNone)
				So(result.Count(), ShouldEqual, 0)
			})
		})
	})
}

func TestCatalogRecording(t *testing.T) {
	Convey("Given a loader with a fetch catalog", t, func() {
		stub := newStub()
		srv := httptest.NewServer(stub.handler())
		defer srv.Close()
		dir := t.TempDir()

		cat, err := catalog.Open(filepath.Join(dir, "catalog.db"))
		So(err, ShouldBeNil)
		defer func() { _ = cat.Close() }()

		Convey("When running the full pipeline", func() {
			_, err := newLoader(srv, dir, app.WithCatalog(cat)).LoadAll(context.Background())
			So(err, ShouldBeNil)

			Convey("Then each stage should have a recorded run", func() {
				runs, err := cat.RecentRuns(10)
				So(err, ShouldBeNil)

				resources := map[string]string{}
				for _, r := range runs {
					resources[r.Resource] = r.Status
				}
				So(resources["files"], ShouldEqual, catalog.StatusOK)
				So(resources["cases"], ShouldEqual, catalog.StatusOK)
				So(resources["annotations"], ShouldEqual, catalog.StatusEmpty)
			})
		})
	})
}
