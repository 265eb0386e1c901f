package main

import (
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/rawbytedev/flatrec"
)

func main() {
	go func() {
		log.Println(http.ListenAndServe("localhost:6060", nil))
	}()
	f, err := os.Create("mem.prof")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()
	runtime.MemProfileRate = 1

	type Point struct {
		X float64
		Y float64
	}
	type Track struct {
		ID     uint64
		Name   string
		Points []Point
		Marks  []int64
	}
	rec := Track{
		ID:     42,
		Name:   "profiling",
		Points: []Point{{1, 2}, {3, 4}, {5, 6}},
		Marks:  []int64{100, 250, 300, 450},
	}

	l := flatrec.NewLoader(flatrec.Options{})
	b := flatrec.NewBufferedLoader(flatrec.Options{}, 256)
	var wire []byte
	for i := 0; i < 10000; i++ {
		wire, _ = l.Dump(&rec, wire[:0])
		var got Track
		if err := b.LoadRaw(wire, &got); err != nil {
			log.Fatal(err)
		}
	}
	pprof.WriteHeapProfile(f)
	time.Sleep(5 * time.Minute)
}
