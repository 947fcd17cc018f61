package canwire

// FrameScanner 为 bufio.Scanner / gnet 缓冲区提供 Split 函数。
// 流中是连续的 16 字节记录，DLC 非法的记录视为失步，前移 1 字节重新同步。
type FrameScanner struct{}

func NewFrameScanner() *FrameScanner {
	return &FrameScanner{}
}

// SplitFunc 切分一条完整记录。
// advance > 0 且 token == nil 表示跳过垃圾数据。
func (fs *FrameScanner) SplitFunc(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if len(data) < RecordSize {
		if atEOF {
			// EOF 时不完整，丢弃
			return len(data), nil, nil
		}
		return 0, nil, nil
	}

	// DLC > 8 或填充非零: 不是记录起点
	if data[4] > 8 || data[5] != 0 || data[6] != 0 || data[7] != 0 {
		return 1, nil, nil
	}

	return RecordSize, data[:RecordSize], nil
}
