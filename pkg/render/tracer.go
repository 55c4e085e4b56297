package render

import (
	"image/color"
	"math"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/taigrr/meshray/pkg/log"
	"github.com/taigrr/meshray/pkg/math3d"
	"github.com/taigrr/meshray/pkg/pick"
)

var logger = log.New("render")

// maxBands bounds the tasks submitted per frame.
const maxBands = 128

// TraceStats summarizes one traced frame.
type TraceStats struct {
	Rays     int
	Hits     int
	Duration time.Duration
}

// Tracer shades every framebuffer pixel by casting a primary ray into the
// picker's instances. Rows are traced in parallel on a worker pool; the
// picker and meshes are only read.
type Tracer struct {
	Camera *Camera
	Picker *pick.Picker

	LightDir   math3d.Vec3
	Ambient    float64
	Background color.RGBA
	Base       color.RGBA

	selected    *pick.Instance
	triangle    [3]uint32
	hasTriangle bool

	pool worker.DynamicWorkerPool
}

// NewTracer creates a tracer using up to workers goroutines; workers <= 0
// uses one per CPU.
func NewTracer(camera *Camera, picker *pick.Picker, workers int) *Tracer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Tracer{
		Camera:     camera,
		Picker:     picker,
		LightDir:   math3d.V3(0.5, 1, 0.3).Normalize(),
		Ambient:    0.15,
		Background: ColorSlate,
		Base:       ColorGray,
		pool:       worker.NewDynamicWorkerPool(workers, 256, 1*time.Second),
	}
}

// Select highlights the instance and triangle of res. A nil res clears the
// selection.
func (t *Tracer) Select(res *pick.Result) {
	if res == nil {
		t.selected, t.hasTriangle = nil, false
		return
	}
	t.selected = res.Instance
	t.triangle = res.Hit.Indices
	t.hasTriangle = true
}

// Selected returns the highlighted instance, or nil.
func (t *Tracer) Selected() *pick.Instance {
	return t.selected
}

// PickPixel picks the instance under pixel (x, y) of a width×height image.
func (t *Tracer) PickPixel(x, y, width, height int) (pick.Result, bool) {
	return t.Picker.Pick(t.Camera.ScreenRay(x, y, width, height))
}

// Trace renders the scene into fb and blocks until every row is done.
func (t *Tracer) Trace(fb *Framebuffer) TraceStats {
	start := time.Now()
	var hits atomic.Int64

	// Build trees up front so workers do not queue on the mesh lock.
	for _, inst := range t.Picker.Instances() {
		if inst.Mesh != nil {
			inst.Mesh.BVH()
		}
	}

	// Rows are grouped into bands so a frame never exceeds the pool queue.
	bandRows := max(1, (fb.Height+maxBands-1)/maxBands)

	var wg sync.WaitGroup
	id := 0
	for y0 := 0; y0 < fb.Height; y0 += bandRows {
		y1 := min(y0+bandRows, fb.Height)
		wg.Add(1)
		t.pool.SubmitTask(worker.Task{
			ID: id,
			Do: func() (any, error) {
				defer wg.Done()
				hits.Add(int64(t.traceRows(fb, y0, y1)))
				return nil, nil
			},
		})
		id++
	}
	wg.Wait()

	stats := TraceStats{
		Rays:     fb.Width * fb.Height,
		Hits:     int(hits.Load()),
		Duration: time.Since(start),
	}
	logger.Debugf("traced %dx%d: %d hits in %s", fb.Width, fb.Height, stats.Hits, stats.Duration)
	return stats
}

// traceRows shades rows [y0, y1) and returns the number of hits.
func (t *Tracer) traceRows(fb *Framebuffer, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := range fb.Width {
			res, ok := t.PickPixel(x, y, fb.Width, fb.Height)
			if ok {
				n++
			}
			fb.SetPixel(x, y, t.Shade(res, ok))
		}
	}
	return n
}

// Shade returns the color of a pixel whose primary ray produced res.
// Lighting is two-sided since triangles are hit from either side.
func (t *Tracer) Shade(res pick.Result, ok bool) color.RGBA {
	if !ok {
		return t.Background
	}

	inst := res.Instance
	n := inst.Mesh.ShadingNormal(res.Hit.Indices, res.Hit.U, res.Hit.V)
	n = inst.Transform.MulVec3Dir(n).Normalize()
	intensity := t.Ambient + (1-t.Ambient)*math.Abs(n.Dot(t.LightDir))

	base := t.Base
	if inst == t.selected {
		base = ColorSelected
		if t.hasTriangle && res.Hit.Indices == t.triangle {
			base = ColorHighlight
		}
	}
	return scaleColor(base, intensity)
}

func scaleColor(c color.RGBA, k float64) color.RGBA {
	k = math.Max(0, math.Min(1, k))
	return color.RGBA{
		R: uint8(float64(c.R) * k),
		G: uint8(float64(c.G) * k),
		B: uint8(float64(c.B) * k),
		A: c.A,
	}
}
