package bitrate

import (
	"math"

	"clipfit/internal/media"
)

const (
	// SafetyMargin discounts the theoretical budget to absorb encoder overshoot.
	SafetyMargin = 0.92
	// RetryReductionFactor is applied on top of the proportional correction.
	RetryReductionFactor = 0.95
	// MinVideoBitrate is the floor for any video bitrate, in bits per second.
	MinVideoBitrate int64 = 100_000
	// MaxAttempts bounds the number of encode passes per run.
	MaxAttempts = 4
	// KeyframeIntervalSeconds is the forced keyframe cadence.
	KeyframeIntervalSeconds = 2
	// AcceptTolerance is the overshoot accepted once MaxAttempts is reached.
	AcceptTolerance = 0.05
)

// Tier is the minimum acceptable bitrate for videos at least Height tall.
type Tier struct {
	Height     int
	MinBitrate int64
}

// Tiers lists the per-resolution quality floors from highest to lowest.
var Tiers = []Tier{
	{Height: 1080, MinBitrate: 2_000_000},
	{Height: 720, MinBitrate: 1_000_000},
	{Height: 480, MinBitrate: 500_000},
	{Height: 360, MinBitrate: 250_000},
}

// ResolutionSteps is the downscale ladder, highest first.
var ResolutionSteps = []int{1080, 720, 480, 360}

// FPSSteps is the frame-rate reduction ladder, highest first.
var FPSSteps = []float64{30, 24, 20, 15}

// Params is the full set of encode parameters for one attempt.
type Params struct {
	VideoBitrate int64   `json:"video_bitrate"`
	AudioBitrate int64   `json:"audio_bitrate"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
	FPS          float64 `json:"fps"`
	MuteAudio    bool    `json:"mute_audio"`
}

// WithVideoBitrate returns a copy of p using bps for video.
func (p Params) WithVideoBitrate(bps int64) Params {
	p.VideoBitrate = bps
	return p
}

// WithDimensions returns a copy of p with the given frame size.
func (p Params) WithDimensions(width, height int) Params {
	p.Width = width
	p.Height = height
	return p
}

// WithFPS returns a copy of p at the given frame rate.
func (p Params) WithFPS(fps float64) Params {
	p.FPS = fps
	return p
}

// KeyframeInterval returns the number of encoded frames between forced keyframes.
func (p Params) KeyframeInterval() int {
	interval := int(math.Round(p.FPS * KeyframeIntervalSeconds))
	if interval < 1 {
		return 1
	}
	return interval
}

// TotalBitrate is the combined video and audio bitrate.
func (p Params) TotalBitrate() int64 {
	return p.VideoBitrate + p.AudioBitrate
}

// InitialParams computes first-attempt parameters for meta under settings.
func InitialParams(meta media.VideoMetadata, settings Settings) Params {
	width, height := meta.Width, meta.Height
	if settings.TargetResolution > 0 && settings.TargetResolution < meta.Height {
		width, height = ScaledDimensions(meta.Width, meta.Height, settings.TargetResolution)
	}

	totalBps := float64(settings.TargetSizeBytes) * 8 / meta.Duration

	var audioBps int64
	if !settings.MuteAudio {
		audioBps = settings.AudioBitrate
	}

	video := int64(math.Floor((totalBps - float64(audioBps)) * SafetyMargin))

	return Params{
		VideoBitrate: clampVideo(video),
		AudioBitrate: audioBps,
		Width:        width,
		Height:       height,
		FPS:          meta.FPS,
		MuteAudio:    settings.MuteAudio,
	}
}

// RetryBitrate scales current by target/actual and the retry reduction factor.
func RetryBitrate(current, actualSize, targetSize int64) int64 {
	if actualSize <= 0 {
		return clampVideo(current)
	}
	ratio := float64(targetSize) / float64(actualSize)
	return clampVideo(int64(math.Floor(float64(current) * ratio * RetryReductionFactor)))
}

// IsBitrateTooLowForResolution reports whether bps is below half the quality
// floor of the highest tier height reaches. Heights below every tier compare
// against MinVideoBitrate.
func IsBitrateTooLowForResolution(bps int64, height int) bool {
	if minimum, ok := tierMinimum(height); ok {
		return float64(bps) < float64(minimum)*0.5
	}
	return bps < MinVideoBitrate
}

// NextResolutionStep returns the rung below the first resolution step that
// height meets. It returns false once 360p or lower is reached.
func NextResolutionStep(height int) (int, bool) {
	for i, step := range ResolutionSteps {
		if height >= step {
			if i+1 < len(ResolutionSteps) {
				return ResolutionSteps[i+1], true
			}
			return 0, false
		}
	}
	return 0, false
}

// NextFPSStep returns the largest ladder rate strictly below fps. It returns
// false at or below the lowest rung.
func NextFPSStep(fps float64) (float64, bool) {
	for _, step := range FPSSteps {
		if step < fps {
			return step, true
		}
	}
	return 0, false
}

// ScaledDimensions fits width x height to targetHeight preserving aspect
// ratio. Both results are even and the height never exceeds the original.
func ScaledDimensions(width, height, targetHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	newHeight := min(targetHeight, height)
	newWidth := int(math.Round(float64(newHeight) * float64(width) / float64(height)))
	return even(newWidth), even(newHeight)
}

// EstimateOutputSize returns the expected byte size of a stream at the given
// bitrates. Advisory only; the ladder always uses the encoded size.
func EstimateOutputSize(videoBps, audioBps int64, seconds float64) int64 {
	return int64(math.Ceil(float64(videoBps+audioBps) * seconds / 8))
}

func tierMinimum(height int) (int64, bool) {
	for _, tier := range Tiers {
		if height >= tier.Height {
			return tier.MinBitrate, true
		}
	}
	return 0, false
}

func clampVideo(bps int64) int64 {
	return max(bps, MinVideoBitrate)
}

func even(v int) int {
	if v%2 != 0 {
		return v - 1
	}
	return v
}
