package main

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli"
	xdraw "golang.org/x/image/draw"

	"github.com/df07/go-radiance/pkg/core"
	"github.com/df07/go-radiance/pkg/field"
	"github.com/df07/go-radiance/pkg/log"
	"github.com/df07/go-radiance/pkg/renderer"
	"github.com/df07/go-radiance/pkg/sampling"
)

var logger = log.New("radiance")

// Flags describing the analytic field, shared by every command.
var fieldFlags = []cli.Flag{
	cli.IntFlag{
		Name:  "dim",
		Value: 2,
		Usage: "axis of the density gradient (0=x, 1=y, 2=z)",
	},
	cli.Float64Flag{
		Name:  "surface",
		Value: 0.2,
		Usage: "surface position along the gradient axis, in [0,1]",
	},
	cli.Float64Flag{
		Name:  "density",
		Value: 10,
		Usage: "density growth rate behind the surface",
	},
	cli.BoolFlag{
		Name:  "hard",
		Usage: "make the surface fully opaque",
	},
	cli.StringFlag{
		Name:  "colormap",
		Value: "jet",
		Usage: "color ramp: 'gray' or 'jet'",
	},
}

func main() {
	cli.VersionFlag = cli.BoolFlag{
		Name:  "version",
		Usage: "print only the version",
	}

	app := cli.NewApp()
	app.Name = "go-radiance"
	app.Usage = "render volumetric radiance fields"
	app.Version = "0.1.0"
	app.Flags = []cli.Flag{
		cli.BoolFlag{
			Name:  "v",
			Usage: "enable verbose logging",
		},
		cli.BoolFlag{
			Name:  "vv",
			Usage: "enable even more verbose logging",
		},
	}
	app.Commands = []cli.Command{
		{
			Name:  "render",
			Usage: "render orbit views of a field to a PNG sheet",
			Description: `
Pose a ring of pinhole views around the unit cube, trace the analytic
density field through a stratified (optionally two-pass) volumetric
integrator and write the composited views as one PNG sheet. Alpha is
kept in the output; pass --depth to also write a depth sheet.`,
			Flags:  append(renderFlags(), fieldFlags...),
			Action: renderScene,
		},
		{
			Name:  "rasterize",
			Usage: "bake a field into a voxel grid file",
			Description: `
Probe the field at every cell center of a cubic lattice over the unit
cube and write the resulting color and density grid as a compressed
binary file.`,
			Flags:  append(rasterizeFlags(), fieldFlags...),
			Action: rasterizeField,
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error(err)
		os.Exit(1)
	}
}

func setupLogging(ctx *cli.Context) {
	if ctx.GlobalBool("v") {
		log.SetLevel(log.Info)
	}

	if ctx.GlobalBool("vv") {
		log.SetLevel(log.Debug)
	}
}

func renderFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "width",
			Value: 256,
			Usage: "view width in pixels",
		},
		cli.IntFlag{
			Name:  "height",
			Value: 256,
			Usage: "view height in pixels",
		},
		cli.IntFlag{
			Name:  "views",
			Value: 4,
			Usage: "number of orbit views",
		},
		cli.Float64Flag{
			Name:  "fov",
			Value: 60,
			Usage: "horizontal field of view in degrees",
		},
		cli.Float64Flag{
			Name:  "radius",
			Value: 2.5,
			Usage: "orbit radius around the cube center",
		},
		cli.Float64Flag{
			Name:  "elevation",
			Value: 0.5,
			Usage: "orbit height above the cube center",
		},
		cli.Float64Flag{
			Name:  "tfar",
			Value: 6,
			Usage: "far limit of the ray range",
		},
		cli.IntFlag{
			Name:  "bins",
			Value: 64,
			Usage: "stratified steps per ray",
		},
		cli.IntFlag{
			Name:  "fine",
			Value: 0,
			Usage: "importance-resampled steps per ray (0 = single pass)",
		},
		cli.IntFlag{
			Name:  "chunk",
			Value: 8192,
			Usage: "rays rendered per chunk",
		},
		cli.IntFlag{
			Name:  "workers",
			Value: 0,
			Usage: "chunk workers (0 = all CPUs)",
		},
		cli.IntFlag{
			Name:  "seed",
			Value: 1,
			Usage: "seed for the per-ray sampling streams",
		},
		cli.StringFlag{
			Name:  "filter",
			Value: "none",
			Usage: "sample filter: 'none', 'bounds' or 'grid'",
		},
		cli.IntFlag{
			Name:  "grid-res",
			Value: 32,
			Usage: "occupancy grid resolution per axis",
		},
		cli.IntFlag{
			Name:  "grid-steps",
			Value: 256,
			Usage: "occupancy updates baked before rendering",
		},
		cli.IntFlag{
			Name:  "scale",
			Value: 1,
			Usage: "integer zoom applied to the output sheet",
		},
		cli.BoolFlag{
			Name:  "depth",
			Usage: "also write a depth sheet",
		},
		cli.StringFlag{
			Name:  "out, o",
			Value: "render.png",
			Usage: "image filename for the rendered sheet",
		},
	}
}

func rasterizeFlags() []cli.Flag {
	return []cli.Flag{
		cli.IntFlag{
			Name:  "res",
			Value: 64,
			Usage: "grid resolution per axis",
		},
		cli.StringFlag{
			Name:  "out, o",
			Value: "field.grid",
			Usage: "filename for the baked grid",
		},
	}
}

// Render orbit views of the configured field into a PNG sheet.
func renderScene(ctx *cli.Context) error {
	setupLogging(ctx)

	f, err := buildField(ctx)
	if err != nil {
		return err
	}
	filter, err := buildFilter(ctx, f)
	if err != nil {
		return err
	}
	vol := renderer.UnitVolume(f, filter)

	width, height := ctx.Int("width"), ctx.Int("height")
	fov := float32(ctx.Float64("fov")) * math32.Pi / 180
	focal := float32(width) / (2 * math32.Tan(fov/2))
	cam := renderer.NewMultiViewCamera(
		focal, focal,
		float32(width-1)/2, float32(height-1)/2,
		width, height,
		0, float32(ctx.Float64("tfar")),
	)
	cam.AddOrbit(
		mgl32.Vec3{0.5, 0.5, 0.5},
		float32(ctx.Float64("radius")),
		float32(ctx.Float64("elevation")),
		ctx.Int("views"),
	)

	config := renderer.DefaultConfig()
	config.MaxRaysParallel = ctx.Int("chunk")
	config.Workers = ctx.Int("workers")
	config.Seed = uint64(ctx.Int("seed"))

	r := renderer.New(config)
	r.Sampler = sampling.NewStratifiedSampler(ctx.Int("bins"), config.Seed)
	if n := ctx.Int("fine"); n > 0 {
		r.Fine = sampling.NewInformedSampler(n, config.Seed)
	}

	flags := core.DefaultMaps
	if ctx.Bool("depth") {
		flags |= core.MapDepth
	}

	maps, stats, err := r.RenderImage(context.Background(), vol, cam, flags)
	if err != nil {
		return err
	}
	displayRenderStats(stats)

	out := ctx.String("out")
	scale := ctx.Int("scale")
	if err := writePNG(out, assembleSheet(colorTiles(maps), scale)); err != nil {
		return err
	}
	if ctx.Bool("depth") {
		depthOut := strings.TrimSuffix(out, filepath.Ext(out)) + "_depth.png"
		if err := writePNG(depthOut, assembleSheet(depthTiles(maps.Depth, cam.TFar), scale)); err != nil {
			return err
		}
	}
	return nil
}

// Bake the configured field into a voxel grid file.
func rasterizeField(ctx *cli.Context) error {
	setupLogging(ctx)

	f, err := buildField(ctx)
	if err != nil {
		return err
	}
	g, err := field.Rasterize(f, ctx.Int("res"))
	if err != nil {
		return err
	}
	return field.SaveGrid(ctx.String("out"), g)
}

func buildField(ctx *cli.Context) (*field.GradientField, error) {
	cmap, err := parseColormap(ctx.String("colormap"))
	if err != nil {
		return nil, err
	}
	dim := ctx.Int("dim")
	if dim < 0 || dim > 2 {
		return nil, fmt.Errorf("gradient axis %d out of range", dim)
	}
	scale := float32(ctx.Float64("density"))
	if ctx.Bool("hard") {
		scale = math32.Inf(1)
	}
	return field.NewGradientField(dim, float32(ctx.Float64("surface")), scale, cmap), nil
}

func parseColormap(name string) (field.Colormap, error) {
	switch name {
	case "gray":
		return field.Gray, nil
	case "jet":
		return field.Jet, nil
	default:
		return nil, fmt.Errorf("unknown colormap %q", name)
	}
}

func buildFilter(ctx *cli.Context, f core.RadianceField) (core.SpatialFilter, error) {
	switch kind := ctx.String("filter"); kind {
	case "none":
		return nil, nil
	case "bounds":
		return field.BoundsFilter{}, nil
	case "grid":
		grid := field.NewOccupancyGrid(ctx.Int("grid-res"), uint64(ctx.Int("seed")))
		steps := ctx.Int("grid-steps")
		logger.Infof("baking %d occupancy updates at resolution %d", steps, grid.Res)
		for step := 0; step < steps; step++ {
			if err := grid.Update(f, step); err != nil {
				return nil, err
			}
		}
		return grid, nil
	default:
		return nil, fmt.Errorf("unknown filter %q", kind)
	}
}

// colorTiles converts the composited color and opacity planes into one
// premultiplied RGBA image per view.
func colorTiles(maps *core.MapSet) []image.Image {
	views, h, w := maps.Color.Shape[0], maps.Color.Shape[1], maps.Color.Shape[2]
	tiles := make([]image.Image, views)
	ray := 0
	for view := range tiles {
		img := image.NewRGBA(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				a := toByte(maps.Alpha.V[ray])
				img.SetRGBA(x, y, color.RGBA{
					R: min(toByte(maps.Color.At(ray, 0)), a),
					G: min(toByte(maps.Color.At(ray, 1)), a),
					B: min(toByte(maps.Color.At(ray, 2)), a),
					A: a,
				})
				ray++
			}
		}
		tiles[view] = img
	}
	return tiles
}

// depthTiles converts the depth plane into one grayscale image per view,
// normalized by the camera's far limit.
func depthTiles(depth *core.Map, tfar float32) []image.Image {
	views, h, w := depth.Shape[0], depth.Shape[1], depth.Shape[2]
	var inv float32
	if tfar > 0 {
		inv = 1 / tfar
	}
	tiles := make([]image.Image, views)
	ray := 0
	for view := range tiles {
		img := image.NewGray(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				img.SetGray(x, y, color.Gray{Y: toByte(depth.V[ray] * inv)})
				ray++
			}
		}
		tiles[view] = img
	}
	return tiles
}

// sheetGrid picks a near-square layout for n view tiles.
func sheetGrid(n int) (cols, rows int) {
	cols = 1
	for cols*cols < n {
		cols++
	}
	rows = (n + cols - 1) / cols
	return cols, rows
}

// assembleSheet lays the view tiles out on a near-square grid, zoomed by an
// integer factor.
func assembleSheet(tiles []image.Image, scale int) *image.RGBA {
	if scale < 1 {
		scale = 1
	}
	cols, rows := sheetGrid(len(tiles))
	b := tiles[0].Bounds()
	w, h := b.Dx()*scale, b.Dy()*scale

	sheet := image.NewRGBA(image.Rect(0, 0, cols*w, rows*h))
	for i, tile := range tiles {
		cell := image.Rect((i%cols)*w, (i/cols)*h, (i%cols+1)*w, (i/cols+1)*h)
		xdraw.NearestNeighbor.Scale(sheet, cell, tile, tile.Bounds(), xdraw.Src, nil)
	}
	return sheet
}

func toByte(v float32) uint8 {
	switch {
	case v <= 0:
		return 0
	case v >= 1:
		return 255
	}
	return uint8(v*255 + 0.5)
}

func writePNG(filename string, img image.Image) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := png.Encode(file, img); err != nil {
		return err
	}
	logger.Noticef("wrote %s", filename)
	return nil
}

func displayRenderStats(stats renderer.RenderStats) {
	var buf bytes.Buffer
	table := tablewriter.NewWriter(&buf)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetHeader([]string{"Rays", "Active", "Queried", "Filtered", "Chunks", "Render time"})
	table.Append([]string{
		fmt.Sprintf("%d", stats.Rays),
		fmt.Sprintf("%d", stats.ActiveRays),
		fmt.Sprintf("%d", stats.SamplesQueried),
		fmt.Sprintf("%d", stats.SamplesFiltered),
		fmt.Sprintf("%d", stats.Chunks),
		fmt.Sprintf("%s", stats.Elapsed.Round(time.Millisecond)),
	})

	table.Render()
	logger.Noticef("render statistics\n%s", buf.String())
}
