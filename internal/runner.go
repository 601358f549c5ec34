package internal

import (
	"context"
	"time"
)

// Runner executes one probe run in a fixed order:
// health, gate, image, upload, classify, inspect, access, archive.
type Runner struct {
	cfg       *ResolvedConfig
	probe     *Probe
	printer   *Printer
	inspector *ObjectInspector
	archiver  ReportArchiver
	now       func() time.Time
}

func NewRunner(cfg *ResolvedConfig, probe *Probe, printer *Printer) *Runner {
	if printer == nil {
		printer = NewPrinter(nil, 0, false)
	}
	return &Runner{
		cfg:     cfg,
		probe:   probe,
		printer: printer,
		now:     time.Now,
	}
}

func (r *Runner) WithInspector(inspector *ObjectInspector) *Runner {
	r.inspector = inspector
	return r
}

func (r *Runner) WithArchiver(archiver ReportArchiver) *Runner {
	r.archiver = archiver
	return r
}

func (r *Runner) Run(ctx context.Context) *RunReport {
	report := &RunReport{
		Profile:   r.cfg.Profile,
		BaseURL:   r.cfg.BaseURL,
		Target:    r.cfg.Target,
		Operator:  getCurrentUser(),
		StartedAt: r.now(),
	}
	LogInfo("Probing %s (profile %s, target %s)", r.cfg.BaseURL, r.cfg.Profile, r.cfg.Target)

	r.printer.Banner(r.cfg.Title, r.cfg.BaseURL)
	r.execute(ctx, report)
	if !report.Halted {
		r.printer.Footer()
	}

	report.FinishedAt = r.now()
	r.archive(ctx, report)
	return report
}

func (r *Runner) execute(ctx context.Context, report *RunReport) {
	report.Health = r.probe.CheckHealth(ctx, r.cfg.BaseURL)
	r.printer.Health(report.Health)

	if !report.Health.Healthy && r.gate(report) {
		return
	}

	img, err := GenerateImage(r.cfg.Image)
	if err != nil {
		LogError("Failed to create test image: %v", err)
		report.ImageError = err.Error()
		r.printer.ImageError(err)
		return
	}
	report.Image = img.Summary()
	LogDebug("Generated %dx%d %s (%d bytes)", img.Width, img.Height, img.ContentType, len(img.Data))

	r.printer.UploadStart(r.cfg.Target, JoinURL(r.cfg.BaseURL, r.cfg.Target.Path()))
	report.Upload = r.probe.UploadAvatar(ctx, r.cfg.BaseURL, r.cfg.Target, img)
	r.printer.Upload(report.Upload)
	if !report.Upload.Success {
		LogWarn("Upload step failed (%s): %s", report.Upload.Failure, report.Upload.Error)
		return
	}

	avatarURL := report.Upload.AvatarURL

	if r.cfg.Classify {
		report.Classification = ClassifyURL(avatarURL, r.cfg.Expect)
		r.printer.Classification(report.Classification, r.cfg.Expect)
	}

	if r.inspector != nil {
		report.Inspection = r.inspector.Inspect(ctx, avatarURL, int64(len(img.Data)))
		r.printer.Inspection(report.Inspection)
	}

	if r.cfg.VerifyAccess {
		report.Access = r.probe.VerifyAccess(ctx, avatarURL)
		r.printer.Access(report.Access)
	}
}

// gate applies the health gate to an unhealthy result and reports whether
// the run stops here.
func (r *Runner) gate(report *RunReport) bool {
	switch r.cfg.HealthGate {
	case HealthGateWarn:
		r.printer.HealthWarning(r.cfg.BaseURL, r.cfg.HealthHint)
		return false
	case HealthGateConnect:
		if report.Health.Failure != FailureConnectivity {
			return false
		}
		report.Halted = true
		return true
	default:
		r.printer.HealthHalted(r.cfg.BaseURL, r.cfg.HealthHint)
		report.Halted = true
		report.ExitCode = 1
		return true
	}
}

func (r *Runner) archive(ctx context.Context, report *RunReport) {
	if r.archiver == nil {
		return
	}
	key, err := r.archiver.Archive(ctx, report)
	if err != nil {
		LogError("Failed to archive run report: %v", err)
		return
	}
	report.ArchiveKey = key
	r.printer.Archived(r.cfg.Archive.Bucket, key)
	LogInfo("Archived run report to %s", key)
}
