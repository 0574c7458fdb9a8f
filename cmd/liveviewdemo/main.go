//go:build !nogpu

// Command liveviewdemo runs a headless camera-preview loop: a synthetic
// camera publishes moving-gradient frames at an irregular cadence while
// a display loop renders at its own rate, then saves the final frame as
// a PNG and prints the drop statistics.
package main

import (
	"flag"
	"image"
	"image/png"
	"log"
	"log/slog"
	"math"
	"os"
	"time"

	"github.com/gogpu/liveview"
	"github.com/gogpu/liveview/gpu"
)

func main() {
	var (
		width   = flag.Int("width", 800, "viewport width")
		height  = flag.Int("height", 600, "viewport height")
		frames  = flag.Int("frames", 60, "display frames to render")
		camW    = flag.Int("cam-width", 320, "camera frame width")
		camH    = flag.Int("cam-height", 240, "camera frame height")
		output  = flag.String("output", "liveview.png", "output file")
		scale   = flag.String("scale", "fit", "scale mode: stretch, fit, fill")
		verbose = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if *verbose {
		liveview.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	viewer, err := gpu.NewViewer(gpu.Config{ScaleMode: scaleMode(*scale)})
	if err != nil {
		log.Fatalf("Failed to create viewer: %v", err)
	}
	defer viewer.Close()

	// Camera side: publish frames at an irregular cadence, the way real
	// capture hardware delivers them.
	stop := make(chan struct{})
	done := make(chan struct{})
	go runCamera(viewer, *camW, *camH, stop, done)

	// Display side: render at a steady refresh, resizing mid-run to
	// exercise viewport-driven quad rebuilds.
	viewport := liveview.ViewportSize{W: float32(*width), H: float32(*height)}
	var last *image.RGBA
	for i := 0; i < *frames; i++ {
		if i == *frames/2 {
			viewport = liveview.ViewportSize{W: viewport.W / 2, H: viewport.H / 2}
		}
		img, err := viewer.RenderFrame(viewport)
		if err != nil {
			// The first refreshes may outrun the camera.
			time.Sleep(10 * time.Millisecond)
			continue
		}
		last = img
		time.Sleep(16 * time.Millisecond)
	}

	close(stop)
	<-done

	if last == nil {
		log.Fatal("No frame rendered; camera never delivered")
	}
	if err := savePNG(*output, last); err != nil {
		log.Fatalf("Failed to save: %v", err)
	}

	log.Printf("Preview saved to %s (%dx%d), %d frames shown, %d dropped\n",
		*output, last.Bounds().Dx(), last.Bounds().Dy(),
		viewer.FramesShown(), viewer.Drops())
}

// runCamera publishes synthetic frames until stop is closed. The sleep
// jitters between 20 and 50 ms so the producer alternately outruns and
// lags the 16 ms display cadence.
func runCamera(viewer *gpu.Viewer, w, h int, stop, done chan struct{}) {
	defer close(done)
	t := 0.0
	for i := 0; ; i++ {
		select {
		case <-stop:
			return
		default:
		}
		if err := viewer.Publish(gradientFrame(w, h, t)); err != nil {
			log.Printf("publish: %v", err)
		}
		t += 0.1
		time.Sleep(time.Duration(20+15*(1+math.Sin(t))) * time.Millisecond)
	}
}

// gradientFrame renders a moving diagonal gradient, phase-shifted by t.
func gradientFrame(w, h int, t float64) *liveview.Frame {
	data := make([]byte, w*h*4)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := (y*w + x) * 4
			u := float64(x) / float64(w)
			v := float64(y) / float64(h)
			data[i+0] = byte(255 * (0.5 + 0.5*math.Sin(6*u+t)))
			data[i+1] = byte(255 * (0.5 + 0.5*math.Sin(6*v+t*1.3)))
			data[i+2] = byte(255 * (0.5 + 0.5*math.Sin(4*(u+v)+t*0.7)))
			data[i+3] = 0xFF
		}
	}
	return &liveview.Frame{
		Data:      data,
		Width:     w,
		Height:    h,
		Timestamp: time.Now(),
	}
}

func scaleMode(name string) liveview.ScaleMode {
	switch name {
	case "stretch":
		return liveview.ScaleStretch
	case "fill":
		return liveview.ScaleAspectFill
	default:
		return liveview.ScaleAspectFit
	}
}

func savePNG(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}
