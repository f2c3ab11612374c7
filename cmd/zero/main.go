package main

import (
	"log"
	"os"
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

/*
CounterZero continual-learning optimizer.
This program is free software: you can redistribute it and/or modify it under the terms of the GNU General Public License as published by the Free Software Foundation, either version 3 of the License, or (at your option) any later version.
This program is distributed in the hope that it will be useful, but WITHOUT ANY WARRANTY; without even the implied warranty of MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU General Public License for more details.
You should have received a copy of the GNU General Public License along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

const name = "CounterZero"

var (
	versionName = "dev"
	gitRevision = "(null)"
)

func main() {
	var logger = log.New(os.Stderr, "", log.LstdFlags|log.Lshortfile)
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	logger.Println(name,
		"VersionName", versionName,
		"GitRevision", gitRevision,
		"RuntimeVersion", runtime.Version(),
		"NumCPU", runtime.NumCPU(),
		"PhysicalCores", cpuid.CPU.PhysicalCores,
		"CPU", cpuid.CPU.BrandName)

	var cli = NewCommandHandler()
	cli.Add("optimize", "train on self-play games and write model generations", func(args []string) error {
		return runOptimize(args, logger)
	})
	cli.Add("generations", "list model generations", func(args []string) error {
		return runGenerations(args, os.Stdout, logger)
	})
	cli.Add("history", "show the training journal", func(args []string) error {
		return runHistory(args, os.Stdout)
	})
	cli.Add("selfplay-sample", "write sample self-play game files", func(args []string) error {
		return runSelfplaySample(args, logger)
	})
	var err = cli.Execute(os.Args[1:])
	if err != nil {
		logger.Fatal(err)
	}
}

func defaultPoolSize() int {
	if cpuid.CPU.PhysicalCores > 0 {
		return cpuid.CPU.PhysicalCores
	}
	return runtime.NumCPU()
}
