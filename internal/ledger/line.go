package ledger

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"zipshelf/internal/model"
)

const fieldDelimiter = "|"

// ErrFieldDelimiter rejects values the line format cannot represent; the
// format has no escaping.
var ErrFieldDelimiter = errors.New("ledger field contains the field delimiter or a newline")

type parsedLine struct {
	record  model.JobRecord
	fields  int
	badTime bool
	rawTime string
}

// parseLine splits at most three fields so a source path that contains the
// delimiter keeps the remainder. Missing trailing fields default to empty.
func parseLine(line string) parsedLine {
	parts := strings.SplitN(line, fieldDelimiter, 3)
	out := parsedLine{fields: len(parts)}
	out.record.OutputName = parts[0]
	if len(parts) > 1 {
		out.rawTime = strings.TrimSpace(parts[1])
		if out.rawTime != "" {
			ts, err := time.ParseInLocation(model.CompletionTimeLayout, out.rawTime, time.Local)
			if err != nil {
				out.badTime = true
				out.record.CompletedAtRaw = out.rawTime
			} else {
				out.record.CompletedAt = ts
			}
		}
	}
	if len(parts) > 2 {
		out.record.SourcePath = parts[2]
	}
	return out
}

func formatLine(rec model.JobRecord) string {
	return rec.OutputName + fieldDelimiter + rec.CompletedAtText() + fieldDelimiter + rec.SourcePath
}

func validateRecord(rec model.JobRecord) error {
	if strings.TrimSpace(rec.OutputName) == "" {
		return errors.New("ledger record requires an output name")
	}
	if err := checkField("output name", rec.OutputName); err != nil {
		return err
	}
	if err := checkField("completion time", rec.CompletedAtRaw); err != nil {
		return err
	}
	return checkField("source path", rec.SourcePath)
}

func checkField(name, v string) error {
	if strings.Contains(v, fieldDelimiter) || strings.ContainsAny(v, "\r\n") {
		return fmt.Errorf("%w: %s %q", ErrFieldDelimiter, name, v)
	}
	return nil
}
