package cache

import (
	"time"
)

// BarInterval is the width of one provider bar.
const BarInterval = 30 * time.Minute

// TimeUntilNextBar は now から次の30分足の境界までの期間を返します。
// 新しいバーはこの境界以降にしか増えないため、キャッシュの有効期限の上限として使います。
func TimeUntilNextBar(now time.Time) time.Duration {
	next := now.Truncate(BarInterval).Add(BarInterval)
	return next.Sub(now)
}
