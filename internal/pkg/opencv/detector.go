package opencv

import (
	"context"
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"

	"github.com/cmlabs-hris/hris-attendance-kiosk/internal/domain/face"
)

// Detector counts frontal faces with a Haar cascade.
type Detector struct {
	mu          sync.Mutex
	classifier  gocv.CascadeClassifier
	minFaceSize int
}

var _ face.Detector = (*Detector)(nil)

// NewDetector loads the cascade at path, e.g. haarcascade_frontalface_default.xml.
func NewDetector(path string, minFaceSize int) (*Detector, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		_ = classifier.Close()
		return nil, fmt.Errorf("failed to load face cascade classifier %q", path)
	}
	if minFaceSize <= 0 {
		minFaceSize = 80
	}
	return &Detector{classifier: classifier, minFaceSize: minFaceSize}, nil
}

func (d *Detector) Detect(ctx context.Context, frame image.Image) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	mat, err := gocv.ImageToMatRGB(frame)
	if err != nil {
		return 0, fmt.Errorf("failed to convert frame: %w", err)
	}
	defer mat.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	if err := gocv.CvtColor(mat, &gray, gocv.ColorRGBToGray); err != nil {
		return 0, fmt.Errorf("failed to convert frame to grayscale: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	minSize := image.Pt(d.minFaceSize, d.minFaceSize)
	rects := d.classifier.DetectMultiScaleWithParams(gray, 1.1, 5, 0, minSize, image.Point{})
	return len(rects), nil
}

func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.classifier.Close()
}
