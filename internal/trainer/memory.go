package trainer

import (
	"log"
	"os"

	"github.com/shirou/gopsutil/v3/process"

	"github.com/ChizhovVadim/CounterZero/internal/replay"
)

func logMemory(logger *log.Logger, stage string, buffer *replay.Buffer) {
	var rss uint64
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err == nil {
		var info *process.MemoryInfoStat
		info, err = proc.MemoryInfo()
		if err == nil {
			rss = info.RSS
		}
	}
	if err != nil {
		logger.Println("memory info", err)
		return
	}
	logger.Println("Memory",
		"stage", stage,
		"rss MB", rss>>20,
		"buffer MB", buffer.Bytes()>>20,
		"examples", buffer.Len())
}
