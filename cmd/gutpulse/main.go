package main

import (
	"database/sql"
	"encoding/binary"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"gutpulse-engine/pkg/config"
	"gutpulse-engine/pkg/database"
	"gutpulse-engine/pkg/engine"
	"gutpulse-engine/pkg/messaging"
	"gutpulse-engine/pkg/metrics"
	"gutpulse-engine/pkg/scoring"
	"gutpulse-engine/pkg/version"
)

var logger = logrus.New()

func main() {
	inputPath := flag.String("in", "", "raw PCM16 little-endian sample file")
	sampleRate := flag.Float64("rate", 0, "sample rate in Hz (default from config)")
	patientID := flag.String("patient", "", "patient identifier for history lookup and persistence")
	interventionStart := flag.Float64("intervention-start", -1, "breathing intervention start in seconds (-1 for none)")
	interventionNoTiming := flag.Bool("intervention", false, "intervention performed but start time unknown")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.UserAgent())
		return
	}

	cfg, err := config.Load(logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to load configuration")
	}
	cfg.Logging.ConfigureLogger(logger)

	metrics.Init(logger)
	metrics.SetEnabled(cfg.HTTP.MetricsEnabled)
	if cfg.HTTP.MetricsEnabled {
		go serveMetrics(cfg.HTTP.MetricsAddr)
	}

	if *inputPath == "" {
		logger.Fatal("No input file given (-in)")
	}
	rate := *sampleRate
	if rate <= 0 {
		rate = cfg.Analysis.DefaultSampleRate
	}

	samples, err := readPCM16(*inputPath)
	if err != nil {
		logger.WithError(err).WithField("path", *inputPath).Fatal("Failed to read samples")
	}
	duration := float64(len(samples)) / rate

	eng := engine.New(cfg.Analysis.Detector, logger)
	result, err := eng.AnalyzeSession(samples, rate, duration)
	if err != nil {
		logger.WithError(err).Fatal("Analysis failed")
	}
	metrics.ObserveScores(result.Analytics.MotilityIndex, result.Analytics.RhythmicityIndex)

	fmt.Println(result.TraceSummary())

	intervention := scoring.Intervention{Kind: scoring.NoIntervention}
	switch {
	case *interventionStart >= 0:
		intervention = scoring.Intervention{Kind: scoring.InterventionWithStart, StartSeconds: *interventionStart}
	case *interventionNoTiming:
		intervention = scoring.Intervention{Kind: scoring.InterventionNoTiming}
	}

	var vagal *scoring.VagalReadinessScore
	var amqpClient *messaging.AMQPClient

	if cfg.Database.Enabled && *patientID != "" {
		vagal = persistAndScore(cfg, result, *patientID, duration, intervention)
	}

	if cfg.Messaging.URL != "" {
		amqpClient = messaging.NewAMQPClient(logger, messaging.AMQPConfig{
			URL:       cfg.Messaging.URL,
			QueueName: cfg.Messaging.QueueName,
		})
		defer amqpClient.Close()

		msg := messaging.AnalyticsMessage{
			SessionID: result.SessionID,
			PatientID: *patientID,
			Timestamp: time.Now(),
			Analytics: result.Analytics,
			Vagal:     vagal,
			OnBody:    result.Contact.IsOnBody,
		}
		if err := amqpClient.PublishAnalytics(msg); err != nil {
			logger.WithError(err).Warn("Failed to publish analytics")
		}
	}

	if vagal != nil {
		fmt.Printf("vagal readiness: %d (%s)\n", vagal.Score, vagal.Category)
	}
}

// persistAndScore stores the session and computes the vagal readiness
// score against the patient's history.
func persistAndScore(cfg *config.Config, result *engine.AnalysisResult, patientID string, duration float64, intervention scoring.Intervention) *scoring.VagalReadinessScore {
	db, err := database.NewMySQLDatabase(database.MySQLConfig{
		Host:     cfg.Database.Host,
		Port:     cfg.Database.Port,
		Database: cfg.Database.Name,
		Username: cfg.Database.User,
		Password: cfg.Database.Password,
	}, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to session store")
		return nil
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		logger.WithError(err).Error("Failed to migrate session store")
		return nil
	}

	repo := database.NewRepository(db, logger)
	session := &database.Session{
		ID:               result.SessionID,
		PatientID:        patientID,
		DurationSeconds:  duration,
		InterventionKind: intervention.Kind,
		Analytics:        &result.Analytics,
	}
	if intervention.Kind == scoring.InterventionWithStart {
		session.InterventionStartSeconds = sql.NullFloat64{Float64: intervention.StartSeconds, Valid: true}
	}
	if err := repo.SaveSession(session); err != nil {
		logger.WithError(err).Error("Failed to persist session")
	}

	aggregator := scoring.NewAggregator(repo, logger)
	vagal, err := aggregator.Compute(patientID, &result.Analytics, intervention)
	if err != nil {
		metrics.SessionStoreError()
		logger.WithError(err).Error("Failed to compute vagal readiness")
		return nil
	}
	metrics.ObserveVagalScore(vagal.Category)
	return vagal
}

// readPCM16 loads a raw little-endian 16-bit PCM file and normalizes
// it to [-1,1]. Compressed containers are out of scope; the upstream
// extractor is trusted to have produced raw samples.
func readPCM16(path string) ([]float64, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	samples := make([]float64, len(data)/2)
	for i := range samples {
		v := int16(binary.LittleEndian.Uint16(data[i*2:]))
		samples[i] = float64(v) / 32768.0
	}
	return samples, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})

	logger.WithField("addr", addr).Info("Serving metrics endpoint")
	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.WithError(err).Warn("Metrics server stopped")
	}
}
