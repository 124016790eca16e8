package danmaku

import (
	"math/rand"
	"sort"
	"time"
)

// filterBuckets 超出上限时按时间顺序划分的区间数
const filterBuckets = 10

// Filter 按时间排序，超出 budget 时先按文本去重，仍超出则分区间随机抽样。
// budget 为 0 表示不限制数量。
func Filter(comments []Comment, budget int) []Comment {
	return FilterWithRand(comments, budget, rand.New(rand.NewSource(time.Now().UnixNano())))
}

// FilterWithRand 与 Filter 相同，使用指定的随机源抽样
func FilterWithRand(comments []Comment, budget int, rng *rand.Rand) []Comment {
	sorted := make([]Comment, len(comments))
	copy(sorted, comments)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	if budget <= 0 || len(sorted) <= budget {
		return sorted
	}

	unique := dedupByText(sorted)
	if len(unique) <= budget {
		return unique
	}

	return sampleByBucket(unique, budget, rng)
}

// dedupByText 保留每种文本最早出现的一条
func dedupByText(sorted []Comment) []Comment {
	seen := make(map[string]struct{}, len(sorted))
	out := make([]Comment, 0, len(sorted))
	for _, c := range sorted {
		if _, ok := seen[c.Text]; ok {
			continue
		}
		seen[c.Text] = struct{}{}
		out = append(out, c)
	}
	return out
}

// sampleByBucket 将时间轴按下标等分为 filterBuckets 段，每段按比例随机保留，
// 保证弹幕在整个时间轴上分布而不是集中在开头或结尾
func sampleByBucket(unique []Comment, budget int, rng *rand.Rand) []Comment {
	total := len(unique)
	size := total / filterBuckets
	ratio := float64(budget) / float64(total)
	out := make([]Comment, 0, budget+filterBuckets)

	for i := 0; i < filterBuckets; i++ {
		start := i * size
		end := (i + 1) * size
		if i == filterBuckets-1 {
			end = total
		}
		bucket := unique[start:end]
		if len(bucket) == 0 {
			continue
		}

		target := int(float64(len(bucket)) * ratio)
		if target < 1 {
			target = 1
		}
		if target >= len(bucket) {
			out = append(out, bucket...)
			continue
		}

		out = append(out, pickOrdered(bucket, target, rng)...)
	}

	// 每段至少保留一条，数量较少时总数可能超过 budget
	if len(out) > budget {
		out = pickOrdered(out, budget, rng)
	}
	return out
}

// pickOrdered 随机保留 n 条并保持原有顺序
func pickOrdered(comments []Comment, n int, rng *rand.Rand) []Comment {
	picked := rng.Perm(len(comments))[:n]
	sort.Ints(picked)
	out := make([]Comment, 0, n)
	for _, idx := range picked {
		out = append(out, comments[idx])
	}
	return out
}
