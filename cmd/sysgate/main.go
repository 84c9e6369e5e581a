package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime/pprof"
	"sort"

	"github.com/evanphx/sysgate/boundary"
	"github.com/evanphx/sysgate/kernel"
	clog "github.com/evanphx/sysgate/log"
	"github.com/evanphx/sysgate/user"
	"github.com/spf13/pflag"
)

type closeProtect struct {
	*os.File
}

func (_ closeProtect) Close() error {
	return nil
}

var (
	fTick     = pflag.DurationP("tick", "t", kernel.DefaultTickInterval, "length of one clock tick")
	fMemPages = pflag.IntP("mem-pages", "m", kernel.DefaultMemoryPages, "physical pages available to user memory")
	fMaxProcs = pflag.IntP("max-procs", "p", kernel.DefaultMaxProcs, "maximum number of processes")
	fTrace    = pflag.Uint64("trace", 0, "initial trace mask, bit n traces syscall n")
	fList     = pflag.BoolP("list", "l", false, "list the available programs")
)

func main() {
	cpuprofile := os.Getenv("CPUPROFILE")
	if cpuprofile != "" {
		f, err := os.Create(cpuprofile)
		if err != nil {
			log.Fatal("could not create CPU profile: ", err)
		}
		if err := pprof.StartCPUProfile(f); err != nil {
			log.Fatal("could not start CPU profile: ", err)
		}
		fmt.Printf("pprof: profiling started\n")
	}

	pflag.Parse()

	if *fList {
		var names []string
		for name := range user.Programs {
			names = append(names, name)
		}

		sort.Strings(names)

		for _, name := range names {
			fmt.Println(name)
		}
		return
	}

	inputArgs := pflag.Args()
	if len(inputArgs) == 0 {
		fmt.Fprintf(os.Stderr, "usage: sysgate [flags] <program> [args...]\n")
		pflag.PrintDefaults()
		os.Exit(2)
	}

	cmd := filepath.Base(inputArgs[0])

	prog, ok := user.Programs[cmd]
	if !ok {
		log.Fatalf("unknown program: %s", cmd)
	}

	k, err := kernel.NewKernel(kernel.Config{
		TickInterval: *fTick,
		MemoryPages:  *fMemPages,
		MaxProcs:     *fMaxProcs,
		Console:      os.Stdout,
		Logger:       clog.New("sysgate", os.Stderr),
	})
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go k.Clock.Run(ctx)

	sys := boundary.New(k)

	args := append([]string{cmd}, inputArgs[1:]...)

	proc, err := k.InitProcess(ctx, cmd, args, user.Program(sys, prog))
	if err != nil {
		log.Fatal(err)
	}

	proc.SetTraceMask(*fTrace)
	proc.HookupStdio(os.Stdin, closeProtect{os.Stdout}, closeProtect{os.Stderr})

	k.StartProcess(proc)

	<-proc.Done()

	k.Shutdown()
	k.Wait()

	if cpuprofile != "" {
		pprof.StopCPUProfile()
		fmt.Printf("pprof: profiling finished\n")
	}

	os.Exit(proc.ExitStatus().Code)
}
