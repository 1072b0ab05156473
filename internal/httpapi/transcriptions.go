package httpapi

import (
	"io"
	"net/http"
	"strconv"

	"inferd/internal/backend"
	"inferd/pkg/types"
)

// maxAudioBytes caps the multipart audio upload size.
var maxAudioBytes int64 = 64 << 20

func handleTranscriptions(svc Service, w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxAudioBytes)
	if err := r.ParseMultipartForm(maxAudioBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "request must be multipart/form-data with a file field")
		return
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "file is required")
		return
	}
	defer file.Close()
	audio, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "failed to read audio file")
		return
	}
	modelName := r.FormValue("model")
	if modelName == "" {
		writeError(w, http.StatusBadRequest, "invalid_request_error", "invalid_payload", "model is required")
		return
	}
	mdl, err := svc.Resolve(modelName)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	format := r.FormValue("response_format")
	if format == "" {
		format = "json"
	}
	opts := backend.TranscribeOptions{Language: r.FormValue("language")}
	if t := r.FormValue("temperature"); t != "" {
		if f, err := strconv.ParseFloat(t, 32); err == nil {
			opts.Temperature = float32(f)
		}
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	var result backend.Transcription
	err = svc.Run(ctx, mdl.ID, types.KindSTT, func(h backend.Handle) error {
		ah, ok := h.(backend.AudioHandle)
		if !ok {
			return backend.ErrDependencyUnavailable("model runtime does not serve transcription")
		}
		var err error
		result, err = ah.Transcribe(ctx, audio, opts)
		if err != nil {
			return backend.ErrInvocation(err)
		}
		return nil
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}

	switch format {
	case "text":
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, result.Text)
	case "verbose_json":
		verbose := types.VerboseTranscription{
			Task:     "transcribe",
			Language: result.Language,
			Duration: result.Duration,
			Text:     result.Text,
			Segments: make([]types.TranscriptionSegment, 0, len(result.Segments)),
		}
		for i, seg := range result.Segments {
			verbose.Segments = append(verbose.Segments, types.TranscriptionSegment{
				ID:    i,
				Start: seg.Start,
				End:   seg.End,
				Text:  seg.Text,
			})
		}
		writeJSON(w, http.StatusOK, verbose)
	default:
		writeJSON(w, http.StatusOK, types.TranscriptionResponse{Text: result.Text})
	}
}
