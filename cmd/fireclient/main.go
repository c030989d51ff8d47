// Command fireclient issues one query against a firequery tree and
// prints the streamed chunks.
//
// Usage:
//
//	fireclient <leader_host:port> [options]
//
// Options:
//
//	--start <date>       Start date (YYYYMMDD), default 20200810
//	--end <date>         End date (YYYYMMDD), default 20200815
//	--pollutant <type>   Pollutant type (PM2.5, PM10, OZONE), default all
//	--max <n>            Maximum records per leaf, default unlimited
//	--chunk <n>          Chunk size, default 500
//	--help               Show usage
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/dreamware/firequery/internal/node"
	"github.com/dreamware/firequery/internal/wire"
)

func main() {
	if len(os.Args) < 2 || os.Args[1] == "--help" || os.Args[1] == "-h" {
		usage()
		if len(os.Args) < 2 {
			os.Exit(1)
		}
		return
	}
	leaderAddr := os.Args[1]

	fs := flag.NewFlagSet("fireclient", flag.ExitOnError)
	fs.Usage = usage
	start := fs.String("start", "20200810", "start date (YYYYMMDD)")
	end := fs.String("end", "20200815", "end date (YYYYMMDD)")
	pollutant := fs.String("pollutant", "", "pollutant type filter")
	maxRecords := fs.Int("max", -1, "maximum records per leaf (-1 = unlimited)")
	chunkSize := fs.Int("chunk", 500, "records per chunk")
	if err := fs.Parse(os.Args[2:]); err != nil {
		os.Exit(1)
	}

	req := &wire.QueryRequest{
		RequestID:     "req_" + uuid.NewString(),
		DateStart:     *start,
		DateEnd:       *end,
		PollutantType: *pollutant,
		LatitudeMin:   -90,
		LatitudeMax:   90,
		LongitudeMin:  -180,
		LongitudeMax:  180,
		MaxRecords:    int32(*maxRecords),
		ChunkSize:     int32(*chunkSize),
	}

	fmt.Println("========================================")
	fmt.Println("FIRE QUERY REQUEST")
	fmt.Println("========================================")
	fmt.Printf("Request ID:    %s\n", req.RequestID)
	fmt.Printf("Date Range:    %s to %s\n", req.DateStart, req.DateEnd)
	if req.PollutantType == "" {
		fmt.Println("Pollutant:     ALL")
	} else {
		fmt.Printf("Pollutant:     %s\n", req.PollutantType)
	}
	if req.MaxRecords < 0 {
		fmt.Println("Max Records:   UNLIMITED")
	} else {
		fmt.Printf("Max Records:   %d\n", req.MaxRecords)
	}
	fmt.Printf("Chunk Size:    %d\n", req.ChunkSize)
	fmt.Println("========================================")

	log.Printf("connecting to leader at %s", leaderAddr)
	client, err := node.GRPCDial(leaderAddr)
	if err != nil {
		log.Fatalf("dial %s: %v", leaderAddr, err)
	}

	if err := runQuery(client, req); err != nil {
		log.Fatalf("query failed: %v", err)
	}
}

func runQuery(client wire.FireQueryClient, req *wire.QueryRequest) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stream, err := client.Query(ctx, req)
	if err != nil {
		return err
	}

	started := time.Now()
	chunks := 0
	totalRecords := 0
	byProcess := make(map[string]int)

	for {
		chunk, err := stream.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		chunks++
		totalRecords += len(chunk.Records)
		byProcess[chunk.SourceProcess] += len(chunk.Records)

		marker := ""
		if chunk.IsFinal {
			marker = " | FINAL"
		}
		fmt.Printf("Chunk %3d | Source: %s | Records: %4d | Total so far: %6d%s\n",
			chunk.ChunkNumber, chunk.SourceProcess, len(chunk.Records), totalRecords, marker)

		if chunks == 1 && len(chunk.Records) > 0 {
			fmt.Println("\n--- Sample Records from Chunk 0 ---")
			for i, rec := range chunk.Records {
				if i == 3 {
					break
				}
				fmt.Printf("  [%d] %s %g %s at (%g, %g) %s - %s\n",
					i, rec.Pollutant, rec.Concentration, rec.Unit,
					rec.Latitude, rec.Longitude, rec.Timestamp, rec.SiteName)
			}
			fmt.Println("-----------------------------------")
		}

		if chunk.IsFinal {
			fmt.Printf("\nReceived final chunk: %d total chunks, %d total records reported.\n",
				chunk.TotalChunks, chunk.TotalRecords)
			break
		}
	}

	elapsed := time.Since(started)

	fmt.Println("\n========================================")
	fmt.Println("QUERY COMPLETE")
	fmt.Println("========================================")
	fmt.Printf("Total Chunks:  %d\n", chunks)
	fmt.Printf("Total Records: %d\n", totalRecords)
	fmt.Printf("Duration:      %d ms\n", elapsed.Milliseconds())
	if ms := elapsed.Milliseconds(); ms > 0 {
		fmt.Printf("Throughput:    %d records/sec\n", int64(totalRecords)*1000/ms)
	}

	fmt.Println("\nRecords by Process:")
	processes := make([]string, 0, len(byProcess))
	for p := range byProcess {
		processes = append(processes, p)
	}
	sort.Strings(processes)
	for _, p := range processes {
		fmt.Printf("  %s: %d records\n", p, byProcess[p])
	}
	fmt.Println("========================================")
	return nil
}

func usage() {
	prog := os.Args[0]
	fmt.Printf("Usage: %s <leader_host:port> [options]\n", prog)
	fmt.Println("\nOptions:")
	fmt.Println("  --start <date>       Start date (YYYYMMDD), default: 20200810")
	fmt.Println("  --end <date>         End date (YYYYMMDD), default: 20200815")
	fmt.Println("  --pollutant <type>   Pollutant type (PM2.5, PM10, OZONE), default: all")
	fmt.Println("  --max <n>            Maximum records, default: unlimited")
	fmt.Println("  --chunk <n>          Chunk size, default: 500")
	fmt.Println("\nExamples:")
	fmt.Printf("  %s localhost:50051\n", prog)
	fmt.Printf("  %s localhost:50051 --pollutant PM2.5 --max 5000\n", prog)
	fmt.Printf("  %s localhost:50051 --start 20200901 --end 20200910\n", prog)
}
