// ABOUTME: Waveform rendering package
// ABOUTME: Raster and terminal renderers over server-computed peak samples
// Package render draws a waveform chunk, the selection overlay and the playhead.
//
// The chunk is folded into one peak per output column, normalized against the
// loudest sample and boosted so quiet passages remain visible. Overlays are
// positioned with the same view.Mapper used for pointer input, so the drawn
// selection always matches what a drag produces.
//
// Example:
//
//	img := image.NewRGBA(image.Rect(0, 0, 800, 200))
//	res := render.NewRenderer().Render(img, render.Frame{
//	    Samples: chunk.Samples,
//	    Mapper:  store.Mapper(800),
//	})
//	if !res.HasWaveform {
//	    // show the empty state
//	}
package render
