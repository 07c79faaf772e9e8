package logging

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

type infoField struct {
	label string
	value string
}

// Keys rendered first, in this order, when present.
var infoHighlightKeys = []string{
	FieldAlert,
	FieldEventType,
	FieldDecisionType,
	"decision_result",
	"decision_reason",
	"error",
	FieldErrorHint,
	FieldImpact,
	FieldProgressPercent,
	"video_bitrate",
	"audio_bitrate",
	"resolution",
	"fps",
	"output_bytes",
	"target_bytes",
}

// selectFields orders attributes for console output. Debug records keep
// everything; info and above drop subject keys already shown in the header.
func selectFields(attrs []kv, debug bool) []infoField {
	if len(attrs) == 0 {
		return nil
	}
	used := make([]bool, len(attrs))
	result := make([]infoField, 0, len(attrs))
	emit := func(idx int) {
		used[idx] = true
		attr := attrs[idx]
		if !debug && skipInfoKey(attr.key) {
			return
		}
		result = append(result, infoField{label: attr.key, value: formatValueForKey(attr.key, attr.value)})
	}
	for _, key := range infoHighlightKeys {
		for idx, attr := range attrs {
			if !used[idx] && attr.key == key {
				emit(idx)
				break
			}
		}
	}
	for idx := range attrs {
		if !used[idx] {
			emit(idx)
		}
	}
	return result
}

// formatValueForKey applies unit-aware formatting based on the key name.
func formatValueForKey(key string, v slog.Value) string {
	v = v.Resolve()
	if n, ok := integerValue(v); ok {
		switch {
		case isByteSizeKey(key) && n >= 0:
			return strconv.Quote(humanize.IBytes(uint64(n)))
		case isBitrateKey(key) && n >= 0:
			return strconv.Quote(humanize.SIWithDigits(float64(n), 2, "bps"))
		}
	}
	if isPercentKey(key) && v.Kind() == slog.KindFloat64 {
		return strconv.FormatFloat(v.Float64(), 'f', 1, 64) + "%"
	}
	return formatValue(v)
}

func integerValue(v slog.Value) (int64, bool) {
	switch v.Kind() {
	case slog.KindInt64:
		return v.Int64(), true
	case slog.KindUint64:
		return int64(v.Uint64()), true
	default:
		return 0, false
	}
}

func isByteSizeKey(key string) bool {
	return strings.HasSuffix(key, "_bytes") ||
		strings.HasSuffix(key, "_size") ||
		key == "size"
}

func isBitrateKey(key string) bool {
	return strings.HasSuffix(key, "_bitrate") || key == "bitrate"
}

func isPercentKey(key string) bool {
	return strings.HasSuffix(key, "_percent") || key == "percent"
}

func skipInfoKey(key string) bool {
	switch key {
	case "", FieldComponent, FieldRunID, FieldAttempt, FieldStage:
		return true
	default:
		return false
	}
}
