package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/angle-app/angle/internal/media"
	"github.com/angle-app/angle/internal/timeline"
)

const (
	// SeekPreroll is how far before the trim start the coarse input seek
	// lands.
	SeekPreroll = 0.5

	normalizeAudio = "aformat=sample_fmts=fltp:sample_rates=44100:channel_layouts=stereo"
	audioBitrate   = "192k"
)

var videoEncodeArgs = []string{
	"-c:v", "libx264",
	"-preset", "medium",
	"-crf", "22",
	"-pix_fmt", "yuv420p",
}

// BuildExtract returns the stage-one command: a coarse seek before the
// input, a fine seek after it and a stream copy of exactly the trim length.
func BuildExtract(sourcePath string, trim timeline.VideoTrim, segmentPath string) media.Command {
	coarse := math.Max(0, trim.Start-SeekPreroll)
	fine := trim.Start - coarse

	return media.Command{
		Name: media.FFmpegTool,
		Args: []string{
			"-y",
			"-ss", media.Seconds(coarse),
			"-i", sourcePath,
			"-ss", media.Seconds(fine),
			"-t", media.Seconds(trim.Duration()),
			"-c", "copy",
			segmentPath,
		},
		Output: segmentPath,
	}
}

// MainAudioTrim is a delay and length applied to the segment's own audio
// when no overlay clips are exported.
type MainAudioTrim struct {
	Delay    float64
	Duration float64
}

// MainAudioTrimFor returns the main-audio trim needed for an audio window
// that differs from the video window, or nil when none is needed.
func MainAudioTrimFor(videoTrim, audioTrim timeline.VideoTrim) *MainAudioTrim {
	if audioTrim == videoTrim {
		return nil
	}
	trimDuration := videoTrim.Duration()
	delay := math.Max(0, audioTrim.Start-videoTrim.Start)
	dur := math.Min(trimDuration, audioTrim.End-audioTrim.Start)
	if delay <= 0 && dur >= trimDuration {
		return nil
	}
	return &MainAudioTrim{Delay: delay, Duration: math.Max(0, dur)}
}

// MixInput describes stage two.
type MixInput struct {
	SegmentPath    string
	HasNativeAudio bool
	Clips          []AudioExportClip
	TrimDuration   float64
	MainAudio      *MainAudioTrim
	ScriptPath     string
	OutputPath     string
}

// MixPlan is the stage-two command plus the filter script it reads, if any.
type MixPlan struct {
	Command      media.Command
	FilterScript string
}

// BuildMix returns the stage-two command. With overlay clips the audio is
// mixed through a filter script and encoded to AAC. Without them the
// segment audio is copied, trimmed or dropped.
func BuildMix(in MixInput) MixPlan {
	args := []string{"-y", "-i", in.SegmentPath}
	for _, c := range in.Clips {
		args = append(args, "-i", c.Path)
	}

	var plan MixPlan
	switch {
	case len(in.Clips) > 0:
		plan.FilterScript = FilterScript(in.HasNativeAudio, in.Clips, in.TrimDuration)
		args = append(args, "-filter_complex_script", in.ScriptPath, "-map", "0:v", "-map", "[aout]")
		args = append(args, videoEncodeArgs...)
		args = append(args, "-c:a", "aac", "-b:a", audioBitrate)
	case !in.HasNativeAudio:
		args = append(args, videoEncodeArgs...)
		args = append(args, "-an")
	case in.MainAudio != nil:
		ms := delayMillis(in.MainAudio.Delay)
		args = append(args, videoEncodeArgs...)
		args = append(args,
			"-af", fmt.Sprintf("adelay=%d|%d,apad,atrim=0:%s", ms, ms, media.Seconds(in.MainAudio.Duration)),
			"-c:a", "aac", "-b:a", audioBitrate,
		)
	default:
		args = append(args, videoEncodeArgs...)
		args = append(args, "-c:a", "copy")
	}
	args = append(args, in.OutputPath)

	plan.Command = media.Command{Name: media.FFmpegTool, Args: args, Output: in.OutputPath}
	return plan
}

// FilterScript builds the audio mixing graph. Input 0 is the segment and
// input i+1 is clips[i].
func FilterScript(hasNativeAudio bool, clips []AudioExportClip, trimDuration float64) string {
	var stmts []string
	var labels strings.Builder

	if hasNativeAudio {
		stmts = append(stmts, "[0:a]"+normalizeAudio+",volume=1[mainAudio]")
		labels.WriteString("[mainAudio]")
	}

	for i, c := range clips {
		ms := delayMillis(c.ExportStartTime)
		stmts = append(stmts, fmt.Sprintf(
			"[%d:a]%s,atrim=start=%s:duration=%s,asetpts=PTS-STARTPTS,adelay=%d|%d,volume=1[a%d]",
			i+1, normalizeAudio, media.Seconds(c.SourceOffset), media.Seconds(c.ExportDuration), ms, ms, i,
		))
		fmt.Fprintf(&labels, "[a%d]", i)
	}

	inputs := len(clips)
	if hasNativeAudio {
		inputs++
	}
	stmts = append(stmts, fmt.Sprintf(
		"%samix=inputs=%d:duration=longest:normalize=0,atrim=0:%s,asetpts=PTS-STARTPTS[aout]",
		labels.String(), inputs, media.Seconds(trimDuration),
	))

	return strings.Join(stmts, ";\n")
}

// delayMillis rounds seconds to the nearest millisecond.
func delayMillis(sec float64) int64 {
	return int64(math.Round(math.Max(0, sec) * 1000))
}
