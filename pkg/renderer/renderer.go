package renderer

import (
	"context"
	"fmt"
	"time"

	"github.com/df07/go-radiance/pkg/core"
	"github.com/df07/go-radiance/pkg/field"
	"github.com/df07/go-radiance/pkg/integrator"
	"github.com/df07/go-radiance/pkg/log"
	"github.com/df07/go-radiance/pkg/sampling"
)

var logger = log.New("renderer")

// fineWeightFloor keeps every coarse step minimally probable before
// importance resampling, so no ray hands the resampler a degenerate
// distribution.
const fineWeightFloor = 1e-2

// Config contains configuration for rendering.
type Config struct {
	MaxRaysParallel int     // bound on rays processed per chunk
	RayExtension    float32 // far-plane stretch closing each ray's last step interval
	Workers         int     // parallel chunk workers (0 = one per CPU)
	Seed            uint64  // seed shared by all sampling streams
}

// DefaultConfig returns sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxRaysParallel: 8192,
		RayExtension:    10,
		Workers:         0,
		Seed:            1,
	}
}

// Renderer turns pixel batches into radiance maps: rays are clipped against
// the volume, stepped by the samplers, shaded by the volume's field and
// integrated into color, alpha and depth. Setting Fine enables a two-pass
// render where a coarse integration guides importance resampling of the
// steps.
type Renderer struct {
	Sampler sampling.StepSampler      // step source along active rays
	Fine    *sampling.InformedSampler // optional importance resampling pass
	Config  Config
}

// New creates a renderer with a stratified step sampler seeded from the
// config. Zero config values fall back to defaults.
func New(config Config) *Renderer {
	if config.MaxRaysParallel <= 0 {
		config.MaxRaysParallel = DefaultConfig().MaxRaysParallel
	}
	if config.RayExtension <= 0 {
		config.RayExtension = DefaultConfig().RayExtension
	}
	return &Renderer{
		Sampler: sampling.NewStratifiedSampler(sampling.DefaultBins, config.Seed),
		Config:  config,
	}
}

// RenderPixels renders the requested maps for an explicit batch of pixel
// coordinates, shaped like the batch. Pixels whose rays miss the volume
// keep zeroed map entries.
func (r *Renderer) RenderPixels(vol *Volume, cam *MultiViewCamera, pixels *core.PixelBatch, maps core.MapFlags) (*core.MapSet, error) {
	cnt := &counters{}
	return r.renderChunk(vol, cam, pixels, maps, cnt)
}

// RenderImage renders full images of every camera view by walking the pixel
// grid in chunks of at most MaxRaysParallel rays. Chunks run on the worker
// pool and scatter into disjoint ranges of the shared maps; because the
// sampling streams are keyed per pixel, the result equals rendering all
// pixels in one batch, whatever the chunk size or worker count. The maps
// are shaped (views, height, width). ctx cancels between chunks.
func (r *Renderer) RenderImage(ctx context.Context, vol *Volume, cam *MultiViewCamera, maps core.MapFlags) (*core.MapSet, RenderStats, error) {
	start := time.Now()
	cnt := &counters{}

	if vol.Field == nil {
		return nil, RenderStats{}, ErrNoField
	}
	if cam.Views() == 0 {
		return nil, RenderStats{}, ErrNoViews
	}

	out := core.NewMapSet(core.Shape{cam.Views(), cam.Height, cam.Width}, vol.Field.ColorDims(), maps)
	perView := max(r.Config.MaxRaysParallel/cam.Views(), 1)
	logger.Infof("rendering %d view(s) at %dx%d, %d rays per view and chunk",
		cam.Views(), cam.Width, cam.Height, perView)

	pool := newChunkPool(r.Config.Workers, func(task chunkTask) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		part, err := r.renderChunk(vol, cam, task.pixels, maps, cnt)
		if err != nil {
			return err
		}
		dst := make([]int, task.pixels.Count())
		for i, id := range task.pixels.ID {
			dst[i] = int(id)
		}
		cnt.chunks.Add(1)
		return out.Scatter(part, dst)
	})

	sampler := sampling.NewSequentialPixelSampler(cam.Views(), cam.Width, cam.Height, perView, 1)
	var sampleErr error
	for {
		pixels, _, err := sampler.NextBatch()
		if err != nil {
			sampleErr = err
			break
		}
		if pixels == nil {
			break
		}
		pool.submit(chunkTask{pixels: pixels})
	}

	err := pool.close()
	if err == nil {
		err = sampleErr
	}
	stats := cnt.snapshot(time.Since(start))
	if err != nil {
		return nil, stats, err
	}
	logger.Noticef("rendered %d rays (%d active) in %d chunks in %v",
		stats.Rays, stats.ActiveRays, stats.Chunks, stats.Elapsed.Round(time.Millisecond))
	return out, stats, nil
}

// RenderRGBA renders color and alpha and packs them per pixel into a single
// map of ColorDims+1 channels.
func (r *Renderer) RenderRGBA(ctx context.Context, vol *Volume, cam *MultiViewCamera) (*core.Map, RenderStats, error) {
	ms, stats, err := r.RenderImage(ctx, vol, cam, core.MapColor|core.MapAlpha)
	if err != nil {
		return nil, stats, err
	}

	channels := ms.Color.Channels
	rgba := core.NewMap(ms.Color.Shape, channels+1)
	for ray := 0; ray < ms.Color.Shape.Count(); ray++ {
		row := rgba.Row(ray)
		copy(row, ms.Color.Row(ray))
		row[channels] = ms.Alpha.At(ray, 0)
	}
	return rgba, stats, nil
}

// renderChunk runs the full pipeline for one pixel batch: rays, box clip,
// compaction, stepping, field queries, integration, map reductions and the
// scatter back to the batch's dense layout.
func (r *Renderer) renderChunk(vol *Volume, cam *MultiViewCamera, pixels *core.PixelBatch, maps core.MapFlags, cnt *counters) (*core.MapSet, error) {
	if vol.Field == nil {
		return nil, ErrNoField
	}
	out := core.NewMapSet(pixels.Shape, vol.Field.ColorDims(), maps)

	rays, err := cam.MakeRays(pixels)
	if err != nil {
		return nil, err
	}
	cnt.rays.Add(int64(rays.Rays()))

	clipped := vol.Box.Clip(rays)
	mask, active := clipped.ActiveMask()
	cnt.activeRays.Add(int64(active))
	if active == 0 {
		return out, nil // chunk misses the volume entirely, keep defaults
	}
	compact, err := clipped.Filter(mask)
	if err != nil {
		return nil, err
	}

	ts, err := r.Sampler.Sample(compact)
	if err != nil {
		return nil, err
	}
	if r.Fine != nil {
		if ts, err = r.refineSteps(vol, compact, ts, cnt); err != nil {
			return nil, err
		}
	}

	samples, err := r.queryField(vol, compact, ts, cnt)
	if err != nil {
		return nil, err
	}
	padded, err := ts.Padded(extendedFar(compact, r.Config.RayExtension))
	if err != nil {
		return nil, err
	}
	weights, _, err := integrator.Integrate(samples, padded, compact, nil)
	if err != nil {
		return nil, err
	}

	part := &core.MapSet{}
	if maps.Has(core.MapColor) {
		if part.Color, err = integrator.ColorMap(samples, weights); err != nil {
			return nil, err
		}
	}
	if maps.Has(core.MapAlpha) {
		part.Alpha = integrator.AlphaMap(weights)
	}
	if maps.Has(core.MapDepth) {
		if part.Depth, err = integrator.DepthMap(padded, weights); err != nil {
			return nil, err
		}
	}

	dst := make([]int, 0, active)
	for i, m := range mask {
		if m {
			dst = append(dst, i)
		}
	}
	if err := out.Scatter(part, dst); err != nil {
		return nil, err
	}
	return out, nil
}

// refineSteps runs the coarse pass: query the field at the coarse steps,
// integrate for weights, floor them and redraw steps following the weight
// distribution.
func (r *Renderer) refineSteps(vol *Volume, rays *core.RayBundle, ts *core.StepSet, cnt *counters) (*core.StepSet, error) {
	samples, err := r.queryField(vol, rays, ts, cnt)
	if err != nil {
		return nil, err
	}
	padded, err := ts.Padded(extendedFar(rays, r.Config.RayExtension))
	if err != nil {
		return nil, err
	}
	weights, _, err := integrator.Integrate(samples, padded, rays, nil)
	if err != nil {
		return nil, err
	}
	weights.Floor(fineWeightFloor)
	return r.Fine.Resample(ts, weights, rays)
}

// queryField evaluates the radiance field at every (step, ray) sample the
// spatial filter lets through, leaving rejected samples at zero color and
// density. View-conditioned fields receive the third-order harmonics of
// their ray's normalized direction alongside each point.
func (r *Renderer) queryField(vol *Volume, rays *core.RayBundle, ts *core.StepSet, cnt *counters) (*core.FieldSamples, error) {
	channels := vol.Field.ColorDims()
	out := core.NewFieldSamples(ts.Steps, ts.Shape, channels)

	points, err := rays.PointsAt(ts)
	if err != nil {
		return nil, err
	}
	vol.ToNDC(points)

	condDims := vol.Field.CondDims()
	if condDims != 0 && condDims != 16 {
		return nil, fmt.Errorf("%w: field wants %d, have 16", ErrCondDims, condDims)
	}
	var rayCond []float32
	if condDims > 0 {
		rayCond = make([]float32, rays.Rays()*condDims)
		for ri := 0; ri < rays.Rays(); ri++ {
			sh := field.SHEncode16(rays.Dir(ri).Mul(1 / rays.DNorm[ri]))
			copy(rayCond[ri*condDims:(ri+1)*condDims], sh[:])
		}
	}

	total := ts.Steps * rays.Rays()
	if vol.Filter == nil {
		var cond []float32
		if condDims > 0 {
			cond = make([]float32, 0, total*condDims)
			for p := 0; p < total; p++ {
				ri := p % rays.Rays()
				cond = append(cond, rayCond[ri*condDims:(ri+1)*condDims]...)
			}
		}
		color, density, err := vol.Field.Radiance(points, cond)
		if err != nil {
			return nil, err
		}
		cnt.samplesQueried.Add(int64(total))
		copy(out.Color, color)
		copy(out.Density, density)
		return out, nil
	}

	mask := vol.Filter.Test(points)
	kept := 0
	for _, m := range mask {
		if m {
			kept++
		}
	}
	cnt.samplesQueried.Add(int64(kept))
	cnt.samplesFiltered.Add(int64(total - kept))

	sub := make([]float32, 0, kept*3)
	var cond []float32
	if condDims > 0 {
		cond = make([]float32, 0, kept*condDims)
	}
	for p, m := range mask {
		if !m {
			continue
		}
		sub = append(sub, points[p*3:p*3+3]...)
		if condDims > 0 {
			ri := p % rays.Rays()
			cond = append(cond, rayCond[ri*condDims:(ri+1)*condDims]...)
		}
	}

	color, density, err := vol.Field.Radiance(sub, cond)
	if err != nil {
		return nil, err
	}
	i := 0
	for p, m := range mask {
		if !m {
			continue
		}
		copy(out.Color[p*channels:(p+1)*channels], color[i*channels:(i+1)*channels])
		out.Density[p] = density[i]
		i++
	}
	return out, nil
}

// extendedFar returns each ray's tfar stretched by the extension factor,
// closing the final integration interval well past the far plane.
func extendedFar(rays *core.RayBundle, ext float32) []float32 {
	far := make([]float32, rays.Rays())
	for i, tf := range rays.TFar {
		far[i] = tf * ext
	}
	return far
}
