package resourcemanager

import (
	"context"
	"encoding/json"

	"github.com/golang/snappy"

	"github.com/evalforge/evalforge/internal/common/apperrors"
	"github.com/evalforge/evalforge/internal/tracksrv/db/models"
)

// preparePluginFileDetails compresses the file contents before storage.
// Requests carry the source text as a plain string; the stored details hold it
// snappy-compressed, which JSON encoding base64s.
func preparePluginFileDetails(_ context.Context, in *ResourceInput) apperrors.Error {
	raw, ok := in.Details["contents"]
	if !ok {
		raw = ""
	}
	text, ok := raw.(string)
	if !ok {
		return ErrInvalidInput.Msg("contents must be a string")
	}
	details := models.PluginFileDetails{
		Contents: snappy.Encode(nil, []byte(text)),
	}
	in.Details = map[string]any{"contents": details.Contents}
	return nil
}

// PluginFileContents recovers the source text from a plugin file view. The
// stored details round-trip through JSON, which base64s the compressed bytes;
// decoding into the typed payload reverses that.
func PluginFileContents(view *ResourceView) (string, apperrors.Error) {
	if _, ok := view.Details["contents"]; !ok {
		return "", nil
	}
	encoded, err := json.Marshal(view.Details)
	if err != nil {
		return "", ErrTrackerError.MsgErr("stored contents are malformed", err)
	}
	var details models.PluginFileDetails
	if err := json.Unmarshal(encoded, &details); err != nil {
		return "", ErrTrackerError.MsgErr("stored contents are malformed", err)
	}
	text, err := snappy.Decode(nil, details.Contents)
	if err != nil {
		return "", ErrTrackerError.MsgErr("stored contents are malformed", err)
	}
	return string(text), nil
}
