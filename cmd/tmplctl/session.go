package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Bibi40k/vmware-template-lifecycle/configs"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/catalog"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/config"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/promote"
	"github.com/Bibi40k/vmware-template-lifecycle/pkg/vcenter"
)

// session is one logged-in vCenter connection and the catalog client on top of it.
type session struct {
	logger  *slog.Logger
	file    *config.VCenterFile
	vclient *vcenter.Client
	library *catalog.Library
}

// openSession loads the credentials file and logs in.
func openSession(ctx context.Context, logger *slog.Logger) (*session, error) {
	file, err := loadVCenterFile(vcenterConfigFile)
	if err != nil {
		return nil, err
	}

	// The timeout bounds login only; the session outlives it.
	cctx, cancel := context.WithTimeout(ctx, configs.Defaults.Timeouts.Connect())
	defer cancel()

	vclient, err := vcenter.NewClient(cctx, file.ClientConfig())
	if err != nil {
		return nil, &userError{
			msg:  fmt.Sprintf("vCenter connection failed: %v", err),
			hint: "check vcenter.host and credentials in " + vcenterConfigFile,
		}
	}
	logger.Info("Connected to vCenter", "host", file.VCenter.Host)

	d := configs.Defaults.Catalog
	lib := catalog.NewLibrary(vclient,
		catalog.WithLogger(logger),
		catalog.WithRateLimit(d.RequestsPerSecond, d.Burst),
		catalog.WithLibraryType(d.LibraryType),
	)
	return &session{logger: logger, file: file, vclient: vclient, library: lib}, nil
}

func (s *session) Close() {
	if err := s.vclient.Disconnect(); err != nil {
		s.logger.Warn("vCenter logout failed", "error", err)
	}
}

// explainCatalogError turns run-aborting catalog errors into user errors with hints.
func explainCatalogError(err error) error {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return &userError{msg: err.Error(), hint: "list available libraries with: tmplctl libraries"}
	case errors.Is(err, catalog.ErrAuthExpired):
		return &userError{msg: err.Error(), hint: "the vCenter session was rejected twice; check the account permissions"}
	case errors.Is(err, catalog.ErrCatalogUnreachable):
		return &userError{msg: err.Error(), hint: "vCenter did not answer; retry later or check connectivity"}
	}
	return err
}

// partialFailure is returned when a run applied only part of its plan.
type partialFailure struct {
	report *promote.RunReport
}

func (e *partialFailure) Error() string {
	return fmt.Sprintf("%d of %d actions failed (run %s)", len(e.report.Failed), len(e.report.Planned), e.report.RunID)
}

// exitCode maps errors to process exit codes: 2 for partially applied runs,
// 1 for everything else.
func exitCode(err error) int {
	var pf *partialFailure
	if errors.As(err, &pf) {
		return 2
	}
	return 1
}
