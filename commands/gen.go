package commands

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/penwyp/go-apitrace/internal/core/decoder"
	"github.com/penwyp/go-apitrace/internal/core/model"
	"github.com/penwyp/go-apitrace/internal/data/tracefile"
	"github.com/penwyp/go-apitrace/internal/util"
)

var (
	genThreads     int
	genPackets     int
	genTracer      string
	genSeed        uint64
	genMaxDuration int
	genMaxGap      int
	genBigEndian   bool
	genCorruptTail bool
	genMalformed   int
)

var genCmd = &cobra.Command{
	Use:   "gen <output>",
	Short: "Write a synthetic trace file",
	Long: `Writes a reproducible trace with the given number of threads and packets
per thread. Packets are written in begin-time order across threads, the way
a tracer records them. --malformed and --corrupt-tail produce damaged files
for exercising the load report.`,
	Args: cobra.ExactArgs(1),
	RunE: runGen,
}

func init() {
	rootCmd.AddCommand(genCmd)

	genCmd.Flags().IntVar(&genThreads, "threads", 4, "Number of threads")
	genCmd.Flags().IntVar(&genPackets, "packets", 100, "Packets per thread")
	genCmd.Flags().StringVar(&genTracer, "tracer", decoder.CallRecordID,
		"Tracer id recorded in the header (callrecord bodies are decodable)")
	genCmd.Flags().Uint64Var(&genSeed, "seed", 1, "Random seed")
	genCmd.Flags().IntVar(&genMaxDuration, "max-duration", 50, "Longest packet in ticks")
	genCmd.Flags().IntVar(&genMaxGap, "max-gap", 20, "Longest idle gap between packets of a thread")
	genCmd.Flags().BoolVar(&genBigEndian, "big-endian", false, "Write big-endian fields")
	genCmd.Flags().BoolVar(&genCorruptTail, "corrupt-tail", false,
		"Append a truncated final packet")
	genCmd.Flags().IntVar(&genMalformed, "malformed", 0,
		"Give every Nth packet an end time before its begin time (0 = none)")
}

func runGen(cmd *cobra.Command, args []string) error {
	if genThreads <= 0 || genPackets < 0 {
		return errors.New("--threads must be positive and --packets not negative")
	}
	if genMaxDuration <= 0 || genMaxGap < 0 {
		return errors.New("--max-duration must be positive and --max-gap not negative")
	}

	order := model.LittleEndian
	if genBigEndian {
		order = model.BigEndian
	}
	packets := generatePackets(rand.New(rand.NewPCG(genSeed, genSeed^0x9e3779b97f4a7c15)), order)

	path := args[0]
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trace: %w", err)
	}
	written, err := writeTrace(f, order, packets)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to write trace: %w", err)
	}

	logger.Info("trace generated", util.F("path", path), util.F("packets", len(packets)), util.F("bytes", written))
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s packets (%s) to %s\n",
		util.FormatNumber(len(packets)), util.FormatBytes(written), path)
	return nil
}

func generatePackets(rng *rand.Rand, order model.ByteOrder) []tracefile.Packet {
	packets := make([]tracefile.Packet, 0, genThreads*genPackets)
	for t := 0; t < genThreads; t++ {
		now := uint64(rng.IntN(genMaxGap + 1))
		for i := 0; i < genPackets; i++ {
			dur := uint64(1 + rng.IntN(genMaxDuration))
			packets = append(packets, tracefile.Packet{
				PacketID:  uint16(1 + rng.IntN(len(decoder.DefaultCallNames))),
				ThreadID:  uint32(t + 1),
				BeginTime: now,
				EndTime:   now + dur,
				Body:      generateBody(rng, order),
			})
			now += dur + uint64(rng.IntN(genMaxGap+1))
		}
	}
	sort.SliceStable(packets, func(i, j int) bool { return packets[i].BeginTime < packets[j].BeginTime })

	if genMalformed > 0 {
		for i := genMalformed - 1; i < len(packets); i += genMalformed {
			if packets[i].BeginTime > 0 {
				packets[i].EndTime = packets[i].BeginTime - 1
			}
		}
	}
	return packets
}

func generateBody(rng *rand.Rand, order model.ByteOrder) []byte {
	if genTracer != decoder.CallRecordID {
		body := make([]byte, rng.IntN(17))
		for i := range body {
			body[i] = byte(rng.IntN(256))
		}
		return body
	}
	args := make([]int64, rng.IntN(4))
	for i := range args {
		args[i] = rng.Int64N(1 << 16)
	}
	return decoder.EncodeCallRecord(order, rng.Int64N(2), args...)
}

func writeTrace(f *os.File, order model.ByteOrder, packets []tracefile.Packet) (int64, error) {
	w, err := tracefile.NewWriter(f, model.FileHeader{
		ByteOrder:     order,
		TracerVersion: 1,
		TracerID:      genTracer,
	})
	if err != nil {
		return 0, err
	}
	for _, p := range packets {
		if _, err := w.WritePacket(p); err != nil {
			return 0, err
		}
	}
	if genCorruptTail {
		// The header declares more bytes than the file holds.
		h := model.PacketHeader{
			Size:        model.PacketHeaderSize + 64,
			PacketID:    1,
			GlobalIndex: uint32(len(packets)),
			ThreadID:    1,
		}
		if _, err := w.WriteRaw(h, make([]byte, 8)); err != nil {
			return 0, err
		}
	}
	if err := w.Flush(); err != nil {
		return 0, err
	}
	return w.Written(), nil
}
