// Command replay feeds a recorded tick file through the live aggregation and
// signal derivation path. Useful for verifying signal behavior on captured
// sessions without a broker connection.
//
// Tick file format: one tick per line, "epoch,price" (header lines and
// blanks are skipped).
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"synthdesk/internal/model"
	"synthdesk/internal/pipeline"
	"synthdesk/internal/signal"
)

func main() {
	var (
		file       = flag.String("file", "", "tick file (epoch,price per line)")
		instrument = flag.String("instrument", "R_100", "instrument symbol")
		tfSec      = flag.Int("tf", 60, "candle width in seconds")
		pipDigits  = flag.Int("pip", 2, "pip precision for digit extraction")
		speed      = flag.Float64("speed", 0, "playback speed (0 = as fast as possible)")
		verbose    = flag.Bool("v", false, "log every derived signal change")
	)
	flag.Parse()

	if *file == "" {
		log.Fatal("[replay] -file is required")
	}

	ticks, err := loadTicks(*file, *instrument)
	if err != nil {
		log.Fatalf("[replay] load %s: %v", *file, err)
	}
	log.Printf("[replay] loaded %d ticks from %s, tf=%ds speed=%.1fx",
		len(ticks), *file, *tfSec, *speed)

	var lastBias signal.Bias
	pipe := pipeline.New(pipeline.Config{
		Instrument:   *instrument,
		TimeframeSec: *tfSec,
		PipDigits:    *pipDigits,
		TickCap:      1400,
		CandleCap:    360,
	}, pipeline.Hooks{
		OnSignal: func(sig signal.Signal) {
			if *verbose && sig.Bias != lastBias {
				log.Printf("[replay] bias %s -> %s (structure %s)", lastBias, sig.Bias, sig.Structure)
			}
			lastBias = sig.Bias
		},
		OnSniper: func(sig signal.Signal) {
			log.Printf("[replay] sniper entry at bucket %d: %s tp=%.5f sl=%.5f",
				sig.HighlightBucket, sig.Bias, sig.TakeProfit, sig.StopLoss)
		},
	})

	applied, dropped := 0, 0
	var prevEpoch int64
	for _, t := range ticks {
		if *speed > 0 && prevEpoch > 0 && t.Epoch > prevEpoch {
			gap := time.Duration(t.Epoch-prevEpoch) * time.Second
			scaled := time.Duration(float64(gap) / *speed)
			if scaled > 5*time.Second {
				scaled = 5 * time.Second
			}
			time.Sleep(scaled)
		}
		prevEpoch = t.Epoch

		if _, ok := pipe.HandleTick(t); ok {
			applied++
		} else {
			dropped++
		}
	}

	log.Printf("[replay] done: %d ticks applied, %d dropped, %d candles",
		applied, dropped, len(pipe.Candles()))

	sig, has := pipe.Signal()
	if !has {
		log.Println("[replay] no signal derived (empty input?)")
		return
	}
	out, _ := json.MarshalIndent(sig, "", "  ")
	os.Stdout.Write(out)
	os.Stdout.Write([]byte("\n"))
}

// loadTicks parses the tick file, skipping malformed lines.
func loadTicks(path, instrument string) ([]model.Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var ticks []model.Tick
	sc := bufio.NewScanner(f)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) < 2 {
			continue
		}
		epoch, err1 := strconv.ParseInt(strings.TrimSpace(parts[0]), 10, 64)
		price, err2 := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
		if err1 != nil || err2 != nil {
			log.Printf("[replay] skipping line %d: %q", lineNo, line)
			continue
		}
		ticks = append(ticks, model.Tick{Instrument: instrument, Price: price, Epoch: epoch})
	}
	return ticks, sc.Err()
}
