package danmaku

import "math"

// Lanes 轨道号（从 1 开始）到该轨道空闲时刻（秒）的映射
type Lanes map[int]float64

// AssignTrack 返回 now 时刻可用的最小轨道号（首次适配）。
// 没有空闲轨道时返回最早空出的轨道。本函数不修改 lanes，
// 调用方负责写入 lanes[track] = now + 占用时长。
func AssignTrack(lanes Lanes, now float64, maxLanes int) int {
	if maxLanes < 1 {
		maxLanes = 1
	}

	best := 1
	bestRemain := math.Inf(1)
	for track := 1; track <= maxLanes; track++ {
		busyUntil, used := lanes[track]
		if !used || busyUntil <= now {
			return track
		}
		if remain := busyUntil - now; remain < bestRemain {
			best = track
			bestRemain = remain
		}
	}
	return best
}

// MaxLanes 根据画布高度、底部字幕区高度和字号计算轨道数，至少为 1
func MaxLanes(canvasHeight, exclusionHeight int, fontSize float64) int {
	if fontSize <= 0 {
		return 1
	}
	n := int(math.Floor(float64(canvasHeight-exclusionHeight) / (fontSize * 0.8)))
	if n < 1 {
		return 1
	}
	return n
}
