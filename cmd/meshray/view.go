package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/harmonica"
	uv "github.com/charmbracelet/ultraviolet"
	"github.com/spf13/cobra"
	"github.com/taigrr/meshray/pkg/math3d"
	"github.com/taigrr/meshray/pkg/pick"
	"github.com/taigrr/meshray/pkg/render"
)

type viewOptions struct {
	scene   sceneOptions
	fps     int
	workers int
}

func newViewCmd() *cobra.Command {
	opts := &viewOptions{}

	cmd := &cobra.Command{
		Use:   "view <model>...",
		Short: "Interactive ray-cast viewer with mouse picking",
		Long: `view ray-casts the models into the terminal using half-block cells.

Controls:
  Click          - Pick the triangle under the cursor
  Drag           - Rotate the models
  A/D, Q/E       - Spin the models (yaw, roll)
  W/S, Scroll    - Move the camera forward/back
  +/-            - Move the camera forward/back
  Arrow keys     - Turn the camera
  R              - Reset view and selection
  ?           - Toggle HUD
  Esc         - Quit`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runView(cmd.Context(), args, opts)
		},
	}

	opts.scene.register(cmd)
	cmd.Flags().IntVar(&opts.fps, "fps", 30, "target frames per second")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "tracing goroutines (0 = one per CPU)")
	return cmd
}

// RotationAxis tracks position and velocity for one rotation axis; velocity
// decays toward zero on a critically damped spring.
type RotationAxis struct {
	Position  float64
	Velocity  float64
	velSpring harmonica.Spring
	velAccel  float64
}

func NewRotationAxis(fps int) RotationAxis {
	return RotationAxis{
		velSpring: harmonica.NewSpring(harmonica.FPS(fps), 4.0, 1.0),
	}
}

// Update applies velocity to position and eases velocity toward 0.
func (a *RotationAxis) Update() {
	a.Position += a.Velocity
	a.Velocity, a.velAccel = a.velSpring.Update(a.Velocity, a.velAccel, 0)
}

// RotationState is the scene's pitch, yaw and roll.
type RotationState struct {
	Pitch, Yaw, Roll RotationAxis
	fps              int
}

func NewRotationState(fps int) *RotationState {
	return &RotationState{
		Pitch: NewRotationAxis(fps),
		Yaw:   NewRotationAxis(fps),
		Roll:  NewRotationAxis(fps),
		fps:   fps,
	}
}

func (r *RotationState) Update() {
	r.Pitch.Update()
	r.Yaw.Update()
	r.Roll.Update()
}

func (r *RotationState) ApplyImpulse(pitch, yaw, roll float64) {
	r.Pitch.Velocity += pitch
	r.Yaw.Velocity += yaw
	r.Roll.Velocity += roll
}

func (r *RotationState) Reset() {
	r.Pitch = NewRotationAxis(r.fps)
	r.Yaw = NewRotationAxis(r.fps)
	r.Roll = NewRotationAxis(r.fps)
}

// Matrix returns the scene rotation.
func (r *RotationState) Matrix() math3d.Mat4 {
	return math3d.RotateX(r.Pitch.Position).
		Mul(math3d.RotateY(r.Yaw.Position)).
		Mul(math3d.RotateZ(r.Roll.Position))
}

// HUD renders an overlay with the frame rate and the current pick.
type HUD struct {
	title     string
	triangles int
	fps       float64
	fpsFrames int
	fpsTime   time.Time
	show      bool
}

func NewHUD(title string, triangles int) *HUD {
	return &HUD{title: title, triangles: triangles, fpsTime: time.Now(), show: true}
}

// UpdateFPS updates the FPS counter; call once per frame.
func (h *HUD) UpdateFPS() {
	h.fpsFrames++
	elapsed := time.Since(h.fpsTime)
	if elapsed >= time.Second {
		h.fps = float64(h.fpsFrames) / elapsed.Seconds()
		h.fpsFrames = 0
		h.fpsTime = time.Now()
	}
}

// Render draws the HUD rows directly on the terminal.
func (h *HUD) Render(width, height int, picked *pick.Result) {
	const (
		reset     = "\x1b[0m"
		bold      = "\x1b[1m"
		bgBlack   = "\x1b[40m"
		fgWhite   = "\x1b[97m"
		fgGreen   = "\x1b[92m"
		fgCyan    = "\x1b[96m"
		fgOrange  = "\x1b[38;5;208m"
		clearLine = "\x1b[2K"
	)
	moveTo := func(row, col int) string {
		return fmt.Sprintf("\x1b[%d;%dH", row, col)
	}

	fmt.Print(moveTo(1, 1) + clearLine)
	fmt.Print(moveTo(height, 1) + clearLine)
	if !h.show {
		return
	}

	fmt.Printf("%s%s%s %.0f FPS %s", moveTo(1, 1), bgBlack, fgGreen, h.fps, reset)
	titleCol := max((width-len(h.title)-2)/2, 1)
	fmt.Print(moveTo(1, titleCol) + fmt.Sprintf("%s%s%s %s %s", bold, bgBlack, fgWhite, h.title, reset))
	tris := fmt.Sprintf("%d tris", h.triangles)
	fmt.Print(moveTo(1, max(width-len(tris)-1, 1)) + fmt.Sprintf("%s%s%s %s %s", bgBlack, fgCyan, bold, tris, reset))

	status := "click to pick a triangle"
	if picked != nil {
		status = fmt.Sprintf("%s  t=%.3f  triangle %v", picked.Instance.Name, picked.Distance, picked.Hit.Indices)
	}
	fmt.Print(moveTo(height, 1) + fmt.Sprintf("%s%s %s %s", bgBlack, fgOrange, status, reset))
}

func runView(ctx context.Context, paths []string, opts *viewOptions) error {
	if opts.fps <= 0 {
		return fmt.Errorf("--fps must be positive; got %d", opts.fps)
	}

	picker, err := loadScene(paths, opts.scene)
	if err != nil {
		return err
	}
	instances := picker.Instances()
	placements := make([]math3d.Mat4, len(instances))
	triangles := 0
	names := make([]string, len(instances))
	for i, inst := range instances {
		placements[i] = inst.Transform
		triangles += inst.Mesh.TriangleCount()
		names[i] = inst.Name
	}

	term := uv.DefaultTerminal()
	width, height, err := term.GetSize()
	if err != nil {
		return fmt.Errorf("get terminal size: %w", err)
	}
	if err := term.Start(); err != nil {
		return fmt.Errorf("start terminal: %w", err)
	}

	term.EnterAltScreen()
	term.HideCursor()
	term.Resize(width, height)

	fmt.Fprint(os.Stdout, "\x1b[?1003h")
	fmt.Fprint(os.Stdout, "\x1b[?1006h")

	termRenderer := render.NewTerminalRenderer(term, width, height)
	fbWidth, fbHeight := termRenderer.FramebufferSize()
	fb := render.NewFramebuffer(fbWidth, fbHeight)

	home := math3d.V3(0, 0, 6)
	camera := render.NewCamera()
	camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))
	camera.SetFOV(math.Pi / 3)
	camera.SetPosition(home)
	camera.LookAt(math3d.Zero3())

	tracer := render.NewTracer(camera, picker, opts.workers)
	hud := NewHUD(strings.Join(names, ", "), triangles)
	rotation := NewRotationState(opts.fps)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Events arrive on their own goroutine; everything that touches the scene
	// is handed to the frame loop through these channels.
	type click struct{ x, y int }
	clicks := make(chan click, 8)
	resizes := make(chan [2]int, 1)
	moves := make(chan float64, 16)
	turns := make(chan [2]float64, 16)
	resets := make(chan struct{}, 1)
	impulses := make(chan [3]float64, 64)
	toggleHUD := make(chan struct{}, 1)

	const (
		keyImpulse = 0.05
		turnStep   = 0.05
		moveStep   = 0.5
	)

	go func() {
		var mouseDown, dragged bool
		var lastX, lastY int
		for ev := range term.Events() {
			switch ev := ev.(type) {
			case uv.WindowSizeEvent:
				select {
				case <-resizes:
				default:
				}
				resizes <- [2]int{ev.Width, ev.Height}

			case uv.KeyPressEvent:
				switch {
				case ev.MatchString("escape", "ctrl+c"):
					cancel()
					return
				case ev.MatchString("r"):
					trySend(resets, struct{}{})
				case ev.MatchString("a"):
					trySend(impulses, [3]float64{0, -keyImpulse, 0})
				case ev.MatchString("d"):
					trySend(impulses, [3]float64{0, keyImpulse, 0})
				case ev.MatchString("q"):
					trySend(impulses, [3]float64{0, 0, -keyImpulse})
				case ev.MatchString("e"):
					trySend(impulses, [3]float64{0, 0, keyImpulse})
				case ev.MatchString("up"):
					trySend(turns, [2]float64{turnStep, 0})
				case ev.MatchString("down"):
					trySend(turns, [2]float64{-turnStep, 0})
				case ev.MatchString("left"):
					trySend(turns, [2]float64{0, turnStep})
				case ev.MatchString("right"):
					trySend(turns, [2]float64{0, -turnStep})
				case ev.MatchString("w", "+", "="):
					trySend(moves, moveStep)
				case ev.MatchString("s", "-", "_"):
					trySend(moves, -moveStep)
				case ev.MatchString("?", "shift+/"):
					trySend(toggleHUD, struct{}{})
				}

			case uv.MouseClickEvent:
				mouseDown, dragged = true, false
				lastX, lastY = ev.X, ev.Y

			case uv.MouseReleaseEvent:
				if mouseDown && !dragged {
					trySend(clicks, click{ev.X, ev.Y})
				}
				mouseDown = false

			case uv.MouseMotionEvent:
				if mouseDown {
					dx, dy := ev.X-lastX, ev.Y-lastY
					if dx != 0 || dy != 0 {
						dragged = true
						trySend(impulses, [3]float64{float64(dy) * 0.03, float64(dx) * 0.03, 0})
					}
					lastX, lastY = ev.X, ev.Y
				}

			case uv.MouseWheelEvent:
				switch ev.Button {
				case uv.MouseWheelUp:
					trySend(moves, moveStep)
				case uv.MouseWheelDown:
					trySend(moves, -moveStep)
				}
			}
		}
	}()

	cleanup := func() {
		fmt.Fprint(os.Stdout, "\x1b[?1003l")
		fmt.Fprint(os.Stdout, "\x1b[?1006l")
		term.ExitAltScreen()
		term.ShowCursor()
		term.Shutdown(context.Background())
	}

	var picked *pick.Result
	targetDuration := time.Second / time.Duration(opts.fps)

	for {
		select {
		case <-ctx.Done():
			cleanup()
			return nil
		default:
		}
		frameStart := time.Now()

	drain:
		for {
			select {
			case size := <-resizes:
				width, height = size[0], size[1]
				term.Erase()
				term.Resize(width, height)
				termRenderer = render.NewTerminalRenderer(term, width, height)
				fbWidth, fbHeight = termRenderer.FramebufferSize()
				fb.Resize(fbWidth, fbHeight)
				camera.SetAspectRatio(float64(fbWidth) / float64(fbHeight))
			case d := <-moves:
				moveCamera(camera, d)
			case turn := <-turns:
				camera.Orbit(turn[0], turn[1])
			case imp := <-impulses:
				rotation.ApplyImpulse(imp[0], imp[1], imp[2])
			case <-resets:
				rotation.Reset()
				camera.SetPosition(home)
				camera.LookAt(math3d.Zero3())
				picked = nil
				tracer.Select(nil)
			case <-toggleHUD:
				hud.show = !hud.show
			case c := <-clicks:
				// Each cell holds two pixel rows; pick the upper one.
				if res, ok := tracer.PickPixel(c.x, c.y*2, fbWidth, fbHeight); ok {
					picked = &res
					tracer.Select(picked)
					logger.Infof("picked %s at t=%.4f triangle %v", res.Instance.Name, res.Distance, res.Hit.Indices)
				} else {
					picked = nil
					tracer.Select(nil)
				}
			default:
				break drain
			}
		}

		rotation.Update()
		spin := rotation.Matrix()
		for i, inst := range instances {
			inst.Transform = spin.Mul(placements[i])
		}

		tracer.Trace(fb)
		termRenderer.Render(fb)
		if err := termRenderer.Flush(); err != nil {
			cleanup()
			return fmt.Errorf("flush: %w", err)
		}

		hud.UpdateFPS()
		hud.Render(width, height, picked)

		if elapsed := time.Since(frameStart); elapsed < targetDuration {
			time.Sleep(targetDuration - elapsed)
		}
	}
}

// moveCamera moves the camera along its view direction, refusing moves that
// leave the 1 to 20 unit shell around the scene.
func moveCamera(camera *render.Camera, distance float64) {
	camera.MoveForward(distance)
	if d := camera.Position.Len(); d < 1 || d > 20 {
		camera.MoveForward(-distance)
	}
}

// trySend drops v when ch is full; input is best effort.
func trySend[T any](ch chan T, v T) {
	select {
	case ch <- v:
	default:
	}
}
