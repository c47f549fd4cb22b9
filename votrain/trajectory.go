package votrain

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/unixpickle/anyvec"
	"github.com/unixpickle/anyvo"
	"github.com/unixpickle/essentials"
)

// A Trajectory is a table of predictions for one sequence.
//
// Each row is the sequence ID, the two frame indices, the
// predicted rotation, and the predicted translation.
type Trajectory struct {
	Rows [][]float64
}

// Add appends a row for a sample's prediction.
func (t *Trajectory) Add(s *anyvo.Sample, rot, trans anyvec.Vector) {
	row := []float64{float64(s.SeqID), float64(s.Frame1), float64(s.Frame2)}
	row = append(row, anyvo.Float64s(rot.Data())...)
	row = append(row, anyvo.Float64s(trans.Data())...)
	t.Rows = append(t.Rows, row)
}

// Len returns the number of rows.
func (t *Trajectory) Len() int {
	return len(t.Rows)
}

// Reset removes all the rows.
func (t *Trajectory) Reset() {
	t.Rows = nil
}

// WriteTo writes the table as text, one space-separated
// row per line.
func (t *Trajectory) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	for _, row := range t.Rows {
		fields := make([]string, len(row))
		for i, x := range row {
			fields[i] = fmt.Sprintf("%.18e", x)
		}
		written, err := bw.WriteString(strings.Join(fields, " ") + "\n")
		n += int64(written)
		if err != nil {
			return n, err
		}
	}
	return n, bw.Flush()
}

// ReadTrajectory parses a table written by
// Trajectory.WriteTo.
func ReadTrajectory(r io.Reader) (*Trajectory, error) {
	res := &Trajectory{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		var row []float64
		for _, field := range strings.Fields(line) {
			x, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, essentials.AddCtx("read trajectory", err)
			}
			row = append(row, x)
		}
		if len(res.Rows) > 0 && len(row) != len(res.Rows[0]) {
			return nil, errors.New("read trajectory: inconsistent row length")
		}
		res.Rows = append(res.Rows, row)
	}
	if err := scanner.Err(); err != nil {
		return nil, essentials.AddCtx("read trajectory", err)
	}
	return res, nil
}

// A TrajectoryWriter persists the trajectory of a finished
// validation sequence.
type TrajectoryWriter interface {
	WriteTrajectory(seqID, epoch int, t *Trajectory) error
}

// A FileTrajectoryWriter writes each trajectory to its own
// file under Dir, replacing any existing file.
type FileTrajectoryWriter struct {
	Dir string
}

// TrajectoryPath returns the path of the trajectory file
// for a sequence and epoch.
func TrajectoryPath(dir string, seqID, epoch int) string {
	return filepath.Join(dir, fmt.Sprintf("%02d", seqID), fmt.Sprintf("traj_%03d.txt", epoch))
}

// WriteTrajectory writes the trajectory to
// TrajectoryPath(f.Dir, seqID, epoch).
func (f *FileTrajectoryWriter) WriteTrajectory(seqID, epoch int, t *Trajectory) (err error) {
	defer func() {
		if err != nil {
			err = essentials.AddCtx("write trajectory", err)
		}
	}()
	path := TrajectoryPath(f.Dir, seqID, epoch)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if _, err := t.WriteTo(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
