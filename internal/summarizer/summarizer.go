package summarizer

import (
	"context"
	"strings"

	"github.com/nguyentantai21042004/meeting-flow/internal/merger"
	"github.com/nguyentantai21042004/meeting-flow/internal/output"
)

const transcriptHeader = "=== TRANSCRIPT CUỘC HỌP ===\n\n"

// FallbackSummary is returned when no summary could be generated.
const FallbackSummary = "=== BIÊN BẢN HỌP ===\n\n⚠️ Không thể tạo tóm tắt tự động\n\n"

// DefaultPrompt is the system prompt used when no prompt file is configured.
const DefaultPrompt = `Bạn là thư ký cuộc họp chuyên nghiệp. Dựa trên transcript bên dưới (mỗi dòng có dạng "[MM:SS] Người nói: nội dung"), hãy viết BIÊN BẢN HỌP bằng TIẾNG VIỆT.

Yêu cầu:
- Bắt đầu bằng tiêu đề "# BIÊN BẢN HỌP" và một câu mô tả chủ đề cuộc họp
- Liệt kê người tham dự theo tên người nói (bỏ qua "Unknown")
- Tóm tắt các nội dung thảo luận chính theo thứ tự thời gian
- Nêu rõ các quyết định đã thống nhất
- Liệt kê công việc cần làm (action items): người phụ trách, hạn chót nếu có
- Sử dụng format markdown: heading, bullet points, bold cho từ khóa quan trọng
- Không bịa thông tin không có trong transcript`

// Summarize asks the model for meeting minutes. Any failure, including an
// empty answer, returns FallbackSummary.
func (s *implSummarizer) Summarize(ctx context.Context, records []merger.MergedRecord) string {
	if s.client == nil {
		s.logger.Info(ctx, "Summary disabled, using fallback text")
		return FallbackSummary
	}

	s.logger.Info(ctx, "Generating meeting summary from %d lines", len(records))

	text, err := s.client.Complete(ctx, s.prompt, BuildTranscript(records))
	if err != nil {
		s.logger.Warn(ctx, "Summarization failed: %v", err)
		return FallbackSummary
	}
	if strings.TrimSpace(text) == "" {
		s.logger.Warn(ctx, "Summarization returned empty text")
		return FallbackSummary
	}

	s.logger.Info(ctx, "Meeting summary generated")
	return text
}

// BuildTranscript renders the model input for records.
func BuildTranscript(records []merger.MergedRecord) string {
	return transcriptHeader + output.TranscriptText(records)
}
