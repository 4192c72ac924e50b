package sink

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/tidwall/gjson"
)

// maxLineSize bounds one JSONL entry; payloads are single lines of text.
const maxLineSize = 1 << 20

// ReplayLog re-emits records from a JSONL delivery log in file order. A speed > 0
// sleeps the elapsed_ms gaps divided by speed; speed <= 0 replays without delay.
func ReplayLog(r io.Reader, w Writer, speed float64) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	lineNo := 0
	prev := int64(-1)
	for scanner.Scan() {
		lineNo++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !gjson.ValidBytes(line) {
			return fmt.Errorf("replay line %d: invalid JSON", lineNo)
		}
		rec := decodeRecord(line)

		if prev >= 0 && speed > 0 {
			if gap := rec.ElapsedMS - prev; gap > 0 {
				time.Sleep(time.Duration(float64(gap) * float64(time.Millisecond) / speed))
			}
		}
		if err := w.WriteRecord(rec); err != nil {
			return fmt.Errorf("replay line %d: %w", lineNo, err)
		}
		prev = rec.ElapsedMS
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("reading delivery log: %w", err)
	}
	return nil
}

// ReplayLogFile opens a JSONL file and replays its records.
func ReplayLogFile(path string, w Writer, speed float64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening delivery log: %w", err)
	}
	defer f.Close()
	return ReplayLog(f, w, speed)
}

func decodeRecord(line []byte) Record {
	res := gjson.GetManyBytes(line,
		"run_id", "at", "source", "dest", "elapsed_ms",
		"random_tag", "payload", "line", "malformed", "raw")
	return Record{
		RunID:     res[0].String(),
		At:        res[1].Time(),
		Source:    int(res[2].Int()),
		Dest:      int(res[3].Int()),
		ElapsedMS: res[4].Int(),
		RandomTag: res[5].String(),
		Payload:   res[6].String(),
		Line:      res[7].String(),
		Malformed: res[8].Bool(),
		Raw:       res[9].String(),
	}
}
