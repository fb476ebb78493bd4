package video

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

type probeStream struct {
	CodecType    string            `json:"codec_type"`
	CodecName    string            `json:"codec_name"`
	Width        int               `json:"width"`
	Height       int               `json:"height"`
	AvgFrameRate string            `json:"avg_frame_rate"`
	RFrameRate   string            `json:"r_frame_rate"`
	NbFrames     string            `json:"nb_frames"`
	Duration     string            `json:"duration"`
	BitRate      string            `json:"bit_rate"`
	Tags         map[string]string `json:"tags"`
	SideData     []struct {
		Rotation float64 `json:"rotation"`
	} `json:"side_data_list"`
}

type probeOutput struct {
	Streams []probeStream `json:"streams"`
	Format  struct {
		Duration string `json:"duration"`
		BitRate  string `json:"bit_rate"`
	} `json:"format"`
}

// Probe reads stream metadata with ffprobe. A file without a video stream
// yields ErrNoVideoTrack.
func Probe(ctx context.Context, path string) (SourceInfo, error) {
	cmd := exec.CommandContext(ctx, "ffprobe",
		"-v", "error",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	output, err := cmd.Output()
	if err != nil {
		return SourceInfo{}, fmt.Errorf("failed to probe %s: %w", path, err)
	}
	return parseProbe(output)
}

func parseProbe(data []byte) (SourceInfo, error) {
	var out probeOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return SourceInfo{}, fmt.Errorf("failed to parse ffprobe output: %w", err)
	}

	var info SourceInfo
	var video *probeStream
	for i := range out.Streams {
		s := &out.Streams[i]
		switch s.CodecType {
		case "video":
			if video == nil {
				video = s
			}
		case "audio":
			info.HasAudio = true
		}
	}
	if video == nil {
		return info, ErrNoVideoTrack
	}

	info.HasVideo = true
	info.Width = video.Width
	info.Height = video.Height
	info.Codec = video.CodecName
	info.Rotation = streamRotation(*video)
	info.FPS = parseRate(video.AvgFrameRate)
	if info.FPS == 0 {
		info.FPS = parseRate(video.RFrameRate)
	}
	info.Frames, _ = strconv.Atoi(video.NbFrames)
	info.Duration = parseSeconds(video.Duration)
	if info.Duration == 0 {
		info.Duration = parseSeconds(out.Format.Duration)
	}
	if info.Bitrate, _ = strconv.Atoi(video.BitRate); info.Bitrate == 0 {
		info.Bitrate, _ = strconv.Atoi(out.Format.BitRate)
	}
	return info, nil
}

// streamRotation returns the clockwise display rotation. The legacy rotate
// tag is clockwise; the display matrix side data is counter-clockwise.
func streamRotation(s probeStream) int {
	deg := 0.0
	if tag, ok := s.Tags["rotate"]; ok {
		deg, _ = strconv.ParseFloat(tag, 64)
	} else {
		for _, sd := range s.SideData {
			if sd.Rotation != 0 {
				deg = -sd.Rotation
				break
			}
		}
	}
	return NormalizeRotation(int(math.Round(deg)))
}

// NormalizeRotation maps any angle onto 0, 90, 180 or 270, rounding to the
// nearest quarter turn.
func NormalizeRotation(deg int) int {
	q := int(math.Round(float64(deg) / 90))
	return ((q%4)+4) % 4 * 90
}

func parseRate(s string) float64 {
	num, den, ok := strings.Cut(s, "/")
	n, err := strconv.ParseFloat(num, 64)
	if err != nil {
		return 0
	}
	if !ok {
		return n
	}
	d, err := strconv.ParseFloat(den, 64)
	if err != nil || d == 0 {
		return 0
	}
	return n / d
}

func parseSeconds(s string) time.Duration {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v < 0 {
		return 0
	}
	return time.Duration(math.Round(v * float64(time.Second)))
}
