package booksearch

// DemoBooks is the fixed list shown when a search fails, so the widget
// still has something to render.
func DemoBooks() []BookResult {
	return []BookResult{
		{ID: "1", Title: "물고기는 존재하지 않는다", Author: "룰루 밀러", Color: Palette[0]},
		{ID: "2", Title: "헤어질 결심 각본", Author: "정서경, 박찬욱", Color: Palette[1]},
		{ID: "3", Title: "도둑맞은 집중력", Author: "요한 하리", Color: Palette[2]},
		{ID: "4", Title: "도시와 그 불확실한 벽", Author: "무라카미 하루키", Color: Palette[3]},
		{ID: "5", Title: "모순", Author: "양귀자", Color: Palette[4]},
	}
}
