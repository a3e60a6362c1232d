// Package observability holds the logging and metrics plumbing shared by
// every component of the import service.
//
// Logging is zerolog. The process builds one root logger from
// LoggingConfig and derives component loggers from it:
//
//	logger := observability.NewLogger(cfg)
//	logger = observability.WithJobContext(logger, jobID)
//	logger.Info().Msg("import job started")
//
// Metrics are Prometheus collectors grouped under a single Metrics value,
// registered once per process with a namespace:
//
//	metrics := observability.NewMetrics("paper_import")
//	metrics.RecordJobStarted(len(items))
//	metrics.RecordItemProcessed("duplicate")
//
// Field names are shared across components so log lines correlate:
// job_id, paper_id, title, researcher_id, researcher_name, source,
// request_id.
package observability
