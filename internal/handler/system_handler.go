package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizsmith/quizsmith-backend/internal/config"
	"github.com/quizsmith/quizsmith-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const metricsPeriod = 7 * time.Second

// SystemHandler streams host and runtime metrics to the dashboard
// over SSE. One sample per tick, first sample on connect.
type SystemHandler struct {
	rdb           *redis.Client
	editorService *service.EditorService
	startTime     time.Time
	cpuName       string
	lastCPU       cpuTimes
	log           zerolog.Logger
}

func NewSystemHandler(rdb *redis.Client, editorService *service.EditorService, log zerolog.Logger) *SystemHandler {
	h := &SystemHandler{
		rdb:           rdb,
		editorService: editorService,
		startTime:     time.Now(),
		cpuName:       cpuModelName(),
		log:           log.With().Str("component", "system_handler").Logger(),
	}
	// Take a baseline sample so the first tick has a delta to work from.
	h.lastCPU, _ = readCPUTimes()
	return h
}

type systemMetrics struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	// Host
	CPUPercent     float64 `json:"cpu_percent"`
	MemUsedBytes   uint64  `json:"mem_used_bytes"`
	MemTotalBytes  uint64  `json:"mem_total_bytes"`
	MemPercent     float64 `json:"mem_percent"`
	DiskUsedBytes  uint64  `json:"disk_used_bytes"`
	DiskTotalBytes uint64  `json:"disk_total_bytes"`
	DiskPercent    float64 `json:"disk_percent"`
	LoadAvg1       float64 `json:"load_avg_1"`
	LoadAvg5       float64 `json:"load_avg_5"`
	LoadAvg15      float64 `json:"load_avg_15"`

	// Process
	Goroutines      int    `json:"goroutines"`
	HeapAllocBytes  uint64 `json:"heap_alloc_bytes"`
	HeapSysBytes    uint64 `json:"heap_sys_bytes"`
	StackInuseBytes uint64 `json:"stack_inuse_bytes"`
	GCCycles        uint32 `json:"gc_cycles"`
	RSSBytes        uint64 `json:"rss_bytes"`
	GoVersion       string `json:"go_version"`
	NumCPU          int    `json:"num_cpu"`
	CPUModel        string `json:"cpu_model"`

	// Worker queues
	QueueSnapshots     int64 `json:"queue_snapshots"`
	QueueActivity      int64 `json:"queue_activity"`
	QueueRevisionPrune int64 `json:"queue_revision_prune"`

	// Editor
	OpenEditorSessions int `json:"open_editor_sessions"`
}

// SystemMetricsSSE godoc
// GET /api/v1/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	if _, ok := requireClaims(c); !ok {
		return
	}

	sseHeaders(c)

	h.log.Info().Msg("Author connected to system metrics SSE")
	defer h.log.Info().Msg("Author disconnected from system metrics SSE")

	ticker := time.NewTicker(metricsPeriod)
	defer ticker.Stop()

	done := c.Request.Context().Done()
	for {
		h.emit(c)
		select {
		case <-done:
			return
		case <-ticker.C:
		}
	}
}

func (h *SystemHandler) emit(c *gin.Context) {
	sample := h.collect(c.Request.Context())
	data, err := json.Marshal(sample)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemMetrics {
	m := systemMetrics{
		Timestamp: time.Now().Unix(),
		Uptime:    formatUptime(time.Since(h.startTime)),
		GoVersion: runtime.Version(),
		NumCPU:    runtime.NumCPU(),
		CPUModel:  h.cpuName,
	}

	if cpu, err := readCPUTimes(); err == nil && cpu.total > h.lastCPU.total {
		busy := float64(cpu.busy() - h.lastCPU.busy())
		m.CPUPercent = busy / float64(cpu.total-h.lastCPU.total) * 100
		h.lastCPU = cpu
	}

	if total, avail, err := readMemory(); err == nil && total > 0 {
		m.MemTotalBytes = total
		m.MemUsedBytes = total - avail
		m.MemPercent = float64(m.MemUsedBytes) / float64(total) * 100
	}

	if total, free, err := diskUsage("/"); err == nil && total > 0 {
		m.DiskTotalBytes = total
		m.DiskUsedBytes = total - free
		m.DiskPercent = float64(m.DiskUsedBytes) / float64(total) * 100
	}

	m.LoadAvg1, m.LoadAvg5, m.LoadAvg15 = readLoadAverages()

	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	m.Goroutines = runtime.NumGoroutine()
	m.HeapAllocBytes = stats.HeapAlloc
	m.HeapSysBytes = stats.Sys
	m.StackInuseBytes = stats.StackInuse
	m.GCCycles = stats.NumGC
	m.RSSBytes, _ = residentSetBytes()

	// One pipelined round trip for all three queue depths.
	pipe := h.rdb.Pipeline()
	snapshots := pipe.LLen(ctx, config.WorkerKey.PersistSnapshotsQueue)
	activity := pipe.LLen(ctx, config.WorkerKey.ActivityEventsQueue)
	prune := pipe.LLen(ctx, config.WorkerKey.RevisionPruneQueue)
	if _, err := pipe.Exec(ctx); err == nil {
		m.QueueSnapshots = snapshots.Val()
		m.QueueActivity = activity.Val()
		m.QueueRevisionPrune = prune.Val()
	}

	m.OpenEditorSessions = h.editorService.Count()

	return m
}

// cpuTimes holds one sample of the aggregate counters from /proc/stat.
type cpuTimes struct {
	idle  uint64
	total uint64
}

func (t cpuTimes) busy() uint64 { return t.total - t.idle }

func readCPUTimes() (cpuTimes, error) {
	data, err := os.ReadFile("/proc/stat")
	if err != nil {
		return cpuTimes{}, err
	}
	line, _, _ := strings.Cut(string(data), "\n")
	if !strings.HasPrefix(line, "cpu ") {
		return cpuTimes{}, fmt.Errorf("cannot parse /proc/stat")
	}

	var t cpuTimes
	for i, field := range strings.Fields(line)[1:] {
		ticks, _ := strconv.ParseUint(field, 10, 64)
		t.total += ticks
		// user nice system idle: idle is the fourth counter.
		if i == 3 {
			t.idle = ticks
		}
	}
	return t, nil
}

func cpuModelName() string {
	f, err := os.Open("/proc/cpuinfo")
	if err != nil {
		return "unknown"
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if name, ok := procLineValue(scanner.Text(), "model name"); ok {
			return name
		}
	}
	return "unknown"
}

func readMemory() (total, avail uint64, err error) {
	f, err := os.Open("/proc/meminfo")
	if err != nil {
		return 0, 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() && (total == 0 || avail == 0) {
		line := scanner.Text()
		if v, ok := procLineValue(line, "MemTotal"); ok {
			total = kilobytesField(v)
		} else if v, ok := procLineValue(line, "MemAvailable"); ok {
			avail = kilobytesField(v)
		}
	}
	return total, avail, nil
}

func diskUsage(path string) (total, free uint64, err error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	blockSize := uint64(stat.Bsize)
	return stat.Blocks * blockSize, stat.Bavail * blockSize, nil
}

func readLoadAverages() (load1, load5, load15 float64) {
	data, err := os.ReadFile("/proc/loadavg")
	if err != nil {
		return 0, 0, 0
	}
	var loads [3]float64
	for i, field := range strings.Fields(string(data)) {
		if i == len(loads) {
			break
		}
		loads[i], _ = strconv.ParseFloat(field, 64)
	}
	return loads[0], loads[1], loads[2]
}

func residentSetBytes() (uint64, error) {
	f, err := os.Open("/proc/self/status")
	if err != nil {
		return 0, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if v, ok := procLineValue(scanner.Text(), "VmRSS"); ok {
			return kilobytesField(v), nil
		}
	}
	return 0, fmt.Errorf("VmRSS not found in /proc/self/status")
}

// procLineValue matches "key: value" lines from /proc files and
// returns the trimmed value.
func procLineValue(line, key string) (string, bool) {
	rest, found := strings.CutPrefix(line, key)
	if !found {
		return "", false
	}
	_, value, found := strings.Cut(rest, ":")
	if !found {
		return "", false
	}
	return strings.TrimSpace(value), true
}

// kilobytesField converts a "12345 kB" value to bytes.
func kilobytesField(value string) uint64 {
	fields := strings.Fields(value)
	if len(fields) == 0 {
		return 0
	}
	kb, _ := strconv.ParseUint(fields[0], 10, 64)
	return kb * 1024
}

// formatUptime renders a duration like "3d 4h 12m 9s", dropping the
// leading units that are still zero.
func formatUptime(d time.Duration) string {
	total := int(d.Seconds())
	units := []struct {
		size  int
		label byte
	}{{86400, 'd'}, {3600, 'h'}, {60, 'm'}, {1, 's'}}

	var b strings.Builder
	for _, u := range units {
		v := total / u.size
		total %= u.size
		if v == 0 && b.Len() == 0 && u.label != 's' {
			continue
		}
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.Itoa(v))
		b.WriteByte(u.label)
	}
	return b.String()
}
