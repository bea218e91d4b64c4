package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"

	"github.com/trustreg-labs/trustreg-go/internal/ingest"
	"github.com/trustreg-labs/trustreg-go/internal/platform/auditlog"
	"github.com/trustreg-labs/trustreg-go/internal/platform/auth"
	"github.com/trustreg-labs/trustreg-go/internal/platform/objectstore"
	"github.com/trustreg-labs/trustreg-go/internal/scoring"
)

const maxBatchLines = 1000

type registryAPI struct {
	logger   *slog.Logger
	db       *sql.DB
	store    *minio.Client
	storeCfg objectstore.Config
	scorer   *scoring.Scorer
}

func newRegistryAPI(logger *slog.Logger, db *sql.DB, store *minio.Client, storeCfg objectstore.Config, scorer *scoring.Scorer) *registryAPI {
	return &registryAPI{
		logger:   logger,
		db:       db,
		store:    store,
		storeCfg: storeCfg,
		scorer:   scorer,
	}
}

func (api *registryAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("POST /batches", api.handleCreateBatch)
	mux.HandleFunc("GET /artifacts", api.handleListArtifacts)
	mux.HandleFunc("GET /artifacts/{artifact_id}", api.handleGetArtifact)
	mux.HandleFunc("POST /artifacts/{artifact_id}/rate", api.handleRateArtifact)
	mux.HandleFunc("GET /artifacts/{artifact_id}/rating", api.handleGetRating)
	mux.HandleFunc("GET /ratings/export", api.handleExportRatings)
}

type artifact struct {
	ArtifactID         string    `json:"artifact_id"`
	Name               string    `json:"name"`
	Category           string    `json:"category"`
	ModelURL           string    `json:"model_url"`
	DatasetURL         string    `json:"dataset_url,omitempty"`
	CodeURL            string    `json:"code_url,omitempty"`
	DatasetInferred    bool      `json:"dataset_inferred"`
	DatasetAlreadySeen bool      `json:"dataset_already_seen"`
	CreatedAt          time.Time `json:"created_at"`
	CreatedBy          string    `json:"created_by"`
}

type createBatchRequest struct {
	Lines     []string `json:"lines"`
	Delimiter string   `json:"delimiter,omitempty"`
}

type skippedLine struct {
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (api *registryAPI) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	actor := requestActor(r)

	var req createBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		api.writeError(w, r, http.StatusBadRequest, "invalid_json")
		return
	}
	if len(req.Lines) == 0 {
		api.writeError(w, r, http.StatusBadRequest, "lines_required")
		return
	}
	if len(req.Lines) > maxBatchLines {
		api.writeError(w, r, http.StatusBadRequest, "too_many_lines")
		return
	}

	var delim rune
	if req.Delimiter != "" {
		runes := []rune(req.Delimiter)
		if len(runes) != 1 {
			api.writeError(w, r, http.StatusBadRequest, "invalid_delimiter")
			return
		}
		delim = runes[0]
	}

	// Lines are classified in order: dataset inference depends on it.
	resolver := ingest.NewResolver(ingest.Options{Delimiter: delim})
	var rows []ingest.Row
	var skipped []skippedLine
	for i, line := range req.Lines {
		row, err := resolver.Classify(line)
		if err != nil {
			skipped = append(skipped, skippedLine{Line: i + 1, Reason: err.Error()})
			continue
		}
		rows = append(rows, row)
	}

	now := time.Now().UTC()
	batchID := uuid.NewString()

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	created := make([]artifact, 0, len(rows))
	duplicates := 0
	for _, row := range rows {
		a := artifact{
			ArtifactID:         uuid.NewString(),
			Name:               row.Name,
			Category:           row.Category,
			ModelURL:           row.ModelURL,
			DatasetURL:         row.DatasetURL,
			CodeURL:            row.CodeURL,
			DatasetInferred:    row.DatasetInferred,
			DatasetAlreadySeen: row.DatasetAlreadySeen,
			CreatedAt:          now,
			CreatedBy:          actor,
		}
		integrity, err := integritySHA256(a)
		if err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}

		res, err := tx.ExecContext(
			r.Context(),
			`INSERT INTO artifacts (
				artifact_id,
				name,
				category,
				model_url,
				dataset_url,
				code_url,
				dataset_inferred,
				dataset_already_seen,
				created_at,
				created_by,
				integrity_sha256
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
			ON CONFLICT (model_url) DO NOTHING`,
			a.ArtifactID,
			a.Name,
			a.Category,
			a.ModelURL,
			a.DatasetURL,
			a.CodeURL,
			a.DatasetInferred,
			a.DatasetAlreadySeen,
			a.CreatedAt,
			a.CreatedBy,
			integrity,
		)
		if err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		affected, err := res.RowsAffected()
		if err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		if affected == 0 {
			duplicates++
			continue
		}
		created = append(created, a)
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        actor,
		Action:       "batch.ingest",
		ResourceType: "batch",
		ResourceID:   batchID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":    "registry",
			"lines":      len(req.Lines),
			"created":    len(created),
			"duplicates": duplicates,
			"skipped":    len(skipped),
		},
	})
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	if err := tx.Commit(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusCreated, map[string]any{
		"batch_id":   batchID,
		"artifacts":  created,
		"duplicates": duplicates,
		"skipped":    skipped,
	})
}

func (api *registryAPI) handleListArtifacts(w http.ResponseWriter, r *http.Request) {
	limit := clampInt(parseIntQuery(r, "limit", 100), 1, 500)
	offset := clampInt(parseIntQuery(r, "offset", 0), 0, 1<<30)
	name := strings.TrimSpace(r.URL.Query().Get("name"))

	query := `SELECT artifact_id, name, category, model_url, dataset_url, code_url,
			dataset_inferred, dataset_already_seen, created_at, created_by
		FROM artifacts`
	args := []any{}
	if name != "" {
		query += ` WHERE name = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
		args = append(args, name, limit, offset)
	} else {
		query += ` ORDER BY created_at DESC LIMIT $1 OFFSET $2`
		args = append(args, limit, offset)
	}

	rows, err := api.db.QueryContext(r.Context(), query, args...)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	out := make([]artifact, 0, limit)
	for rows.Next() {
		var a artifact
		if err := rows.Scan(
			&a.ArtifactID, &a.Name, &a.Category, &a.ModelURL, &a.DatasetURL, &a.CodeURL,
			&a.DatasetInferred, &a.DatasetAlreadySeen, &a.CreatedAt, &a.CreatedBy,
		); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, map[string]any{"artifacts": out})
}

func (api *registryAPI) handleGetArtifact(w http.ResponseWriter, r *http.Request) {
	artifactID := strings.TrimSpace(r.PathValue("artifact_id"))
	if artifactID == "" {
		api.writeError(w, r, http.StatusBadRequest, "artifact_id_required")
		return
	}

	a, err := api.loadArtifact(r.Context(), artifactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	api.writeJSON(w, http.StatusOK, a)
}

type rating struct {
	RatingID        string          `json:"rating_id"`
	ArtifactID      string          `json:"artifact_id"`
	NetScore        float64         `json:"net_score"`
	Report          json.RawMessage `json:"report"`
	ReportObjectKey string          `json:"report_object_key,omitempty"`
	RatedAt         time.Time       `json:"rated_at"`
	RatedBy         string          `json:"rated_by"`
}

func (api *registryAPI) handleRateArtifact(w http.ResponseWriter, r *http.Request) {
	actor := requestActor(r)

	artifactID := strings.TrimSpace(r.PathValue("artifact_id"))
	if artifactID == "" {
		api.writeError(w, r, http.StatusBadRequest, "artifact_id_required")
		return
	}

	a, err := api.loadArtifact(r.Context(), artifactID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	row := ingest.Row{
		CodeURL:            a.CodeURL,
		DatasetURL:         a.DatasetURL,
		ModelURL:           a.ModelURL,
		DatasetInferred:    a.DatasetInferred,
		DatasetAlreadySeen: a.DatasetAlreadySeen,
		Name:               a.Name,
		Category:           a.Category,
	}
	report := api.scorer.Score(r.Context(), row)

	reportJSON, err := json.Marshal(report)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	now := time.Now().UTC()
	ratingID := uuid.NewString()
	objectKey := "ratings/" + artifactID + "/" + ratingID + ".ndjson"

	integrity, err := integritySHA256(rating{
		RatingID:        ratingID,
		ArtifactID:      artifactID,
		NetScore:        report.NetScore,
		Report:          reportJSON,
		ReportObjectKey: objectKey,
		RatedAt:         now,
		RatedBy:         actor,
	})
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	// Archive the NDJSON record first so a failed insert never leaves a
	// rating row pointing at a missing object.
	line := append(bytes.TrimSpace(reportJSON), '\n')
	putCtx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	_, err = api.store.PutObject(
		putCtx,
		api.storeCfg.BucketReports,
		objectKey,
		bytes.NewReader(line),
		int64(len(line)),
		minio.PutObjectOptions{ContentType: "application/x-ndjson"},
	)
	cancel()
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "report_store_failed")
		return
	}
	cleanupObject := func() {
		// The request context may already be canceled when the insert
		// fails; the compensating delete must still go through.
		ctx, cancel := cleanupContext()
		defer cancel()
		_ = api.store.RemoveObject(ctx, api.storeCfg.BucketReports, objectKey, minio.RemoveObjectOptions{})
	}

	tx, err := api.db.BeginTx(r.Context(), nil)
	if err != nil {
		cleanupObject()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(
		r.Context(),
		`INSERT INTO ratings (
			rating_id,
			artifact_id,
			net_score,
			report,
			report_object_key,
			rated_at,
			rated_by,
			integrity_sha256
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
		ratingID,
		artifactID,
		report.NetScore,
		reportJSON,
		objectKey,
		now,
		actor,
		integrity,
	)
	if err != nil {
		cleanupObject()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	_, err = auditlog.Insert(r.Context(), tx, auditlog.Event{
		OccurredAt:   now,
		Actor:        actor,
		Action:       "artifact.rate",
		ResourceType: "artifact",
		ResourceID:   artifactID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":    "registry",
			"rating_id":  ratingID,
			"net_score":  report.NetScore,
			"model_url":  a.ModelURL,
			"object_key": objectKey,
		},
	})
	if err != nil {
		cleanupObject()
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	if err := tx.Commit(); err != nil {
		cleanupObject()
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	w.Header().Set("Location", "/artifacts/"+artifactID+"/rating")
	api.writeJSON(w, http.StatusCreated, rating{
		RatingID:        ratingID,
		ArtifactID:      artifactID,
		NetScore:        report.NetScore,
		Report:          reportJSON,
		ReportObjectKey: objectKey,
		RatedAt:         now,
		RatedBy:         actor,
	})
}

func (api *registryAPI) handleGetRating(w http.ResponseWriter, r *http.Request) {
	artifactID := strings.TrimSpace(r.PathValue("artifact_id"))
	if artifactID == "" {
		api.writeError(w, r, http.StatusBadRequest, "artifact_id_required")
		return
	}

	var out rating
	var reportRaw []byte
	err := api.db.QueryRowContext(
		r.Context(),
		`SELECT rating_id, artifact_id, net_score, report, report_object_key, rated_at, rated_by
		 FROM ratings
		 WHERE artifact_id = $1
		 ORDER BY rated_at DESC
		 LIMIT 1`,
		artifactID,
	).Scan(&out.RatingID, &out.ArtifactID, &out.NetScore, &reportRaw, &out.ReportObjectKey, &out.RatedAt, &out.RatedBy)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			api.writeError(w, r, http.StatusNotFound, "not_found")
			return
		}
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	out.Report = normalizeJSON(reportRaw)

	api.writeJSON(w, http.StatusOK, out)
}

// handleExportRatings snapshots the latest rating of every artifact as
// an NDJSON object in the reports bucket.
func (api *registryAPI) handleExportRatings(w http.ResponseWriter, r *http.Request) {
	actor := requestActor(r)

	rows, err := api.db.QueryContext(
		r.Context(),
		`SELECT DISTINCT ON (artifact_id) report
		 FROM ratings
		 ORDER BY artifact_id, rated_at DESC`,
	)
	if err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}
	defer rows.Close()

	var buf bytes.Buffer
	count := 0
	for rows.Next() {
		var reportRaw []byte
		if err := rows.Scan(&reportRaw); err != nil {
			api.writeError(w, r, http.StatusInternalServerError, "internal_error")
			return
		}
		buf.Write(bytes.TrimSpace(reportRaw))
		buf.WriteByte('\n')
		count++
	}
	if err := rows.Err(); err != nil {
		api.writeError(w, r, http.StatusInternalServerError, "internal_error")
		return
	}

	now := time.Now().UTC()
	exportID := uuid.NewString()
	objectKey := "ratings/exports/" + now.Format("2006-01-02") + "/" + exportID + ".ndjson"

	sum := sha256.Sum256(buf.Bytes())
	exportSHA256 := hex.EncodeToString(sum[:])

	putCtx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	_, err = api.store.PutObject(
		putCtx,
		api.storeCfg.BucketReports,
		objectKey,
		bytes.NewReader(buf.Bytes()),
		int64(buf.Len()),
		minio.PutObjectOptions{ContentType: "application/x-ndjson"},
	)
	cancel()
	if err != nil {
		api.writeError(w, r, http.StatusBadGateway, "report_store_failed")
		return
	}

	_, err = auditlog.Insert(r.Context(), api.db, auditlog.Event{
		OccurredAt:   now,
		Actor:        actor,
		Action:       "ratings.export",
		ResourceType: "export",
		ResourceID:   exportID,
		RequestID:    r.Header.Get("X-Request-Id"),
		IP:           requestIP(r.RemoteAddr),
		UserAgent:    r.UserAgent(),
		Payload: map[string]any{
			"service":    "registry",
			"object_key": objectKey,
			"sha256":     exportSHA256,
			"size_bytes": buf.Len(),
			"count":      count,
		},
	})
	if err != nil {
		ctx, cancel := cleanupContext()
		_ = api.store.RemoveObject(ctx, api.storeCfg.BucketReports, objectKey, minio.RemoveObjectOptions{})
		cancel()
		api.writeError(w, r, http.StatusInternalServerError, "audit_failed")
		return
	}

	api.writeJSON(w, http.StatusCreated, map[string]any{
		"export_id":  exportID,
		"object_key": objectKey,
		"sha256":     exportSHA256,
		"size_bytes": buf.Len(),
		"count":      count,
	})
}

func (api *registryAPI) loadArtifact(ctx context.Context, artifactID string) (artifact, error) {
	var a artifact
	err := api.db.QueryRowContext(
		ctx,
		`SELECT artifact_id, name, category, model_url, dataset_url, code_url,
			dataset_inferred, dataset_already_seen, created_at, created_by
		 FROM artifacts
		 WHERE artifact_id = $1`,
		artifactID,
	).Scan(
		&a.ArtifactID, &a.Name, &a.Category, &a.ModelURL, &a.DatasetURL, &a.CodeURL,
		&a.DatasetInferred, &a.DatasetAlreadySeen, &a.CreatedAt, &a.CreatedBy,
	)
	return a, err
}

// requestActor falls back to "anonymous" when auth is disabled.
func requestActor(r *http.Request) string {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || strings.TrimSpace(identity.Subject) == "" {
		return "anonymous"
	}
	return identity.Subject
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, 4<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("multiple JSON values")
	}
	return nil
}

func (api *registryAPI) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(true)
	_ = enc.Encode(body)
}

func (api *registryAPI) writeError(w http.ResponseWriter, r *http.Request, status int, code string) {
	api.writeJSON(w, status, map[string]any{
		"error":      code,
		"request_id": r.Header.Get("X-Request-Id"),
	})
}

func integritySHA256(v any) (string, error) {
	blob, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(blob)
	return hex.EncodeToString(sum[:]), nil
}

func normalizeJSON(raw []byte) json.RawMessage {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return []byte("{}")
	}
	return raw
}

// cleanupContext returns a context for compensation work, detached
// from the request so a client disconnect cannot skip the cleanup.
func cleanupContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 10*time.Second)
}

func requestIP(remoteAddr string) net.IP {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return nil
	}
	return net.ParseIP(host)
}

func parseIntQuery(r *http.Request, key string, def int) int {
	v := strings.TrimSpace(r.URL.Query().Get(key))
	if v == "" {
		return def
	}
	parsed, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return parsed
}

func clampInt(v int, min int, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
