package config_test

import (
	"context"
	"testing"
	"time"

	"github.com/gdclab/brcaloader/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.DataDir, convey.ShouldEqual, "data")
			convey.So(cfg.BaseURL, convey.ShouldEqual, "https://api.gdc.cancer.gov")
			convey.So(cfg.ProjectID, convey.ShouldEqual, "TCGA-BRCA")
			convey.So(cfg.DataType, convey.ShouldEqual, "Gene Expression Quantification")
			convey.So(cfg.PageSize, convey.ShouldEqual, 10_000)
			convey.So(cfg.MaxRetries, convey.ShouldEqual, 3)
			convey.So(cfg.QueryTimeout, convey.ShouldEqual, 60*time.Second)
			convey.So(cfg.DownloadTimeout, convey.ShouldEqual, 300*time.Second)
			convey.So(cfg.AutoDownloadPAM50, convey.ShouldBeTrue)
			convey.So(cfg.MetricsAddr, convey.ShouldEqual, "")
			convey.So(cfg.CatalogPath, convey.ShouldEqual, "")
		})
	})
}
