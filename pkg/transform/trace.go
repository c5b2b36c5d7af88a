package transform

// Trace tuning shared by the pure-Go and OpenCV implementations
const (
	// TraceThreshold is the intensity above which a pixel is foreground
	TraceThreshold = 127
	// MinPerimeter drops contours whose closed arc length is not above it
	MinPerimeter = 100.0
	// TraceStroke is the outline width in pixels
	TraceStroke = 2

	// Gaussian sigmas matching 5x5 and 3x3 kernels with automatic sigma
	blurSigma5 = 1.1
	blurSigma3 = 0.8
)
