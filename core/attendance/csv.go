package attendance

import (
	"context"
	"encoding/csv"
	"io"
	"time"

	"github.com/pkg/errors"
)

var csvHeader = []string{"Date", "Class", "Instructor", "Status", "Notes"}

// ExportFilename is the suggested download name for a student history export.
func ExportFilename(today time.Time) string {
	return "my-attendance-" + today.Format(DateLayout) + ".csv"
}

// ExportCSV writes a student's attendance history (newest first) as CSV:
// a header row, then one row per record.
func (svc *Service) ExportCSV(ctx context.Context, w io.Writer, studentID string) error {
	if _, err := svc.stdSvc.GetByID(ctx, studentID); err != nil {
		return err
	}

	recs, err := svc.repo.FilterRecords(ctx, Filter{StudentID: studentID})
	if err != nil {
		return errors.Wrap(err, "querying records")
	}

	// class/instructor names resolved once per export
	names := make(map[string][2]string)
	for _, rec := range recs {
		if _, ok := names[rec.ClassID]; ok {
			continue
		}
		sess, err := svc.clsSvc.GetByID(ctx, rec.ClassID)
		if err != nil {
			return errors.Wrap(err, "resolving class")
		}
		names[rec.ClassID] = [2]string{sess.Name, sess.InstructorName}
	}

	cw := csv.NewWriter(w)
	if err = cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "writing header")
	}
	for _, rec := range recs {
		name := names[rec.ClassID]
		row := []string{
			rec.Date.Format(DateLayout),
			name[0],
			name[1],
			string(rec.Status),
			rec.Notes.String,
		}
		if err = cw.Write(row); err != nil {
			return errors.Wrap(err, "writing row")
		}
	}
	cw.Flush()
	return errors.Wrap(cw.Error(), "flushing csv")
}
