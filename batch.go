package img2ascii

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/wbrown/img2ascii/imageutil"
)

// BatchOutputSuffix is appended to each source file name.
const BatchOutputSuffix = ".ascii.png"

// BatchConvert renders every supported image directly inside inDir to
// outDir/<name>.ascii.png, creating outDir if needed. Files are processed
// in name order and the first failure stops the batch. It returns the
// number of files written.
func BatchConvert(ctx context.Context, inDir, outDir string, conv *Converter, log logrus.FieldLogger) (int, error) {
	entries, err := os.ReadDir(inDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read input directory: %w", err)
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && imageutil.IsSupportedImage(e.Name()) {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	done := 0
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		src, err := imageutil.LoadImage(filepath.Join(inDir, name))
		if err != nil {
			return done, err
		}
		frame, err := conv.RenderContext(ctx, src)
		if err != nil {
			return done, fmt.Errorf("failed to convert %s: %w", name, err)
		}
		if err := imageutil.SaveImage(frame.Raster, filepath.Join(outDir, name+BatchOutputSuffix)); err != nil {
			return done, err
		}
		done++
		log.WithField("file", name).Info("processed")
	}
	return done, nil
}
