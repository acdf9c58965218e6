package telegram

import (
	"fmt"
	"sort"
	"strings"

	"keno-bot/internal/database"
	"keno-bot/internal/predictor"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const welcomeText = `🎱 Welcome to Keno Prediction Bot!

🤖 I generate Keno number sets from recent draw history:
• 🔥 Hot, cold, mixed and average frequency picks
• 🚀 Momentum picks for numbers heating up
• 🔷 Board shapes placed on hot or trending cells
• 🧠 Auto mode that follows the best performing method

📝 Available commands:
/predict [method] [count] - Generate numbers
/methods - List generation methods
/shapes - List board shapes
/history - Recent draws
/stats - Method accuracy
/auto - Auto mode status
/help - Help information

⚠️ Note: This bot only provides services in private chats`

const helpText = `📖 Command Help:

/predict - Auto mode, default count
/predict cold 5 - Five cold numbers
/predict shapes 6 - A six cell board shape
/methods - Available methods
/shapes - Shape catalog
/history - View recent 10 draws
/stats - Accuracy per method
/auto - Which method auto mode follows
/refresh - Discard cached predictions

💡 Usage Tips:
• Predictions refresh every few rounds, not on every request
• Keno draws are random, predictions are for entertainment only`

var methodDescriptions = map[predictor.Method]string{
	predictor.MethodFrequency: "most drawn numbers in the sample window",
	predictor.MethodCold:      "least drawn numbers in the sample window",
	predictor.MethodMixed:     "half hot, half cold",
	predictor.MethodAverage:   "numbers closest to the median frequency",
	predictor.MethodMomentum:  "recent rate rising above the baseline",
	predictor.MethodShapes:    "a board shape placed by score",
	predictor.MethodAuto:      "best recent method by accuracy",
	predictor.MethodRandom:    "uniform random numbers",
}

// formatPrediction 格式化预测消息
func formatPrediction(method predictor.Method, target string, nums []int) string {
	var builder strings.Builder

	builder.WriteString("🔮 *Keno Prediction*\n\n")
	builder.WriteString(fmt.Sprintf("Method: `%s`\n", method))
	if target != "" {
		builder.WriteString(fmt.Sprintf("Target Round: `%s`\n", target))
	}
	builder.WriteString(fmt.Sprintf("Numbers (%d): `%s`\n\n", len(nums), database.FormatNumbers(nums)))
	builder.WriteString(renderBoard(nums))
	builder.WriteString("\n💡 *Tips*: Predictions are for reference only, please be rational")

	return builder.String()
}

// renderBoard 5×8棋盘，选中格子标记为●
func renderBoard(nums []int) string {
	selected := make(map[int]bool, len(nums))
	for _, n := range nums {
		selected[n] = true
	}

	var builder strings.Builder
	builder.WriteString("```\n")
	for row := 0; row < predictor.BoardRows; row++ {
		for col := 0; col < predictor.BoardCols; col++ {
			n := predictor.CellNumber(row, col)
			if selected[n] {
				builder.WriteString(" ●")
			} else {
				builder.WriteString(fmt.Sprintf("%2d", n))
			}
			if col < predictor.BoardCols-1 {
				builder.WriteString(" ")
			}
		}
		builder.WriteString("\n")
	}
	builder.WriteString("```\n")
	return builder.String()
}

func formatMethods(methods []predictor.Method) string {
	var builder strings.Builder

	builder.WriteString("🧰 *Generation Methods*\n\n")
	for _, m := range methods {
		desc := methodDescriptions[m]
		if desc == "" {
			desc = "custom generator"
		}
		builder.WriteString(fmt.Sprintf("`%s` - %s\n", m, desc))
	}
	return builder.String()
}

func formatShapes(shapes []predictor.ShapeDefinition) string {
	var builder strings.Builder

	builder.WriteString("🔷 *Board Shapes*\n\n")
	for _, s := range shapes {
		builder.WriteString(fmt.Sprintf("%s %s `%s` (%d cells)\n", s.Glyph, s.Name, s.Key, s.Size()))
	}
	builder.WriteString("\nUse pattern `random`, `weighted`, `smart` or a shape key in the config.")
	return builder.String()
}

// formatRounds 最近开奖（最旧在上）
func formatRounds(rounds []database.Round) string {
	var builder strings.Builder

	builder.WriteString("📊 *Recent Draws*\n\n")
	if len(rounds) == 0 {
		builder.WriteString("No draw records")
		return builder.String()
	}

	for _, r := range rounds {
		builder.WriteString(fmt.Sprintf("Round `%s`\n", r.RoundKey))
		builder.WriteString(fmt.Sprintf("   Numbers: `%s`\n", database.FormatNumbers(r.DrawnNumbers)))
		if !r.PlayedAt.IsZero() {
			builder.WriteString(fmt.Sprintf("   Time: `%s`\n", r.PlayedAt.Format("01-02 15:04:05")))
		}
	}
	return builder.String()
}

// formatStats 格式化各方法统计
func formatStats(stats []database.MethodStats) string {
	var builder strings.Builder

	builder.WriteString("📊 *Prediction Statistics*\n\n")
	if len(stats) == 0 {
		builder.WriteString("No verified predictions yet")
		return builder.String()
	}

	sorted := append([]database.MethodStats(nil), stats...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].AverageAccuracy > sorted[j].AverageAccuracy
	})

	for _, s := range sorted {
		accuracy := s.AverageAccuracy * 100
		builder.WriteString(fmt.Sprintf("`%s`: %.1f%% avg over %d rounds, best %d hits\n",
			s.Method, accuracy, s.TotalVerified, s.BestHits))
	}

	builder.WriteString(fmt.Sprintf("\n🏆 *Best*: `%s` %s\n", sorted[0].Method, calculatePerformanceRating(sorted[0].AverageAccuracy*100)))
	builder.WriteString("\n💡 *Note*: Random picks average 25% since 10 of 40 numbers are drawn")
	return builder.String()
}

func formatAuto(best predictor.Method, averages map[predictor.Method]float64, points, minPoints int) string {
	var builder strings.Builder

	builder.WriteString("🧠 *Auto Mode*\n\n")
	builder.WriteString(fmt.Sprintf("Following: `%s`\n", best))
	builder.WriteString(fmt.Sprintf("Data points: `%d`\n", points))
	if points < minPoints {
		builder.WriteString(fmt.Sprintf("Collecting data, %d more rounds before switching from frequency\n", minPoints-points))
	}

	if len(averages) > 0 {
		builder.WriteString("\n")
		for _, m := range predictor.AutoCandidates {
			if acc, ok := averages[m]; ok {
				builder.WriteString(fmt.Sprintf("`%s`: %.1f%%\n", m, acc*100))
			}
		}
	}
	return builder.String()
}

// formatBroadcast 新一轮推送
func formatBroadcast(latest *database.Round, target string, predictions map[predictor.Method][]int) string {
	var builder strings.Builder

	builder.WriteString("🚨 *New Round Prediction Push*\n\n")

	if latest != nil {
		builder.WriteString("📊 *Latest Draw*\n")
		builder.WriteString(fmt.Sprintf("Round: `%s`\n", latest.RoundKey))
		builder.WriteString(fmt.Sprintf("Numbers: `%s`\n\n", database.FormatNumbers(latest.DrawnNumbers)))
	}

	builder.WriteString("🔮 *Next Round Predictions*\n")
	builder.WriteString(fmt.Sprintf("Round: `%s`\n", target))

	methods := make([]string, 0, len(predictions))
	for m := range predictions {
		methods = append(methods, string(m))
	}
	sort.Strings(methods)
	for _, m := range methods {
		builder.WriteString(fmt.Sprintf("`%s`: `%s`\n", m, database.FormatNumbers(predictions[predictor.Method(m)])))
	}

	builder.WriteString("\n💡 Send /predict for a board view")
	return builder.String()
}

// calculatePerformanceRating 按平均命中率（百分比）评级，随机基准为25%
func calculatePerformanceRating(accuracy float64) string {
	switch {
	case accuracy >= 40:
		return "🏆 Excellent (≥40%)"
	case accuracy >= 33:
		return "🥇 Great (≥33%)"
	case accuracy >= 28:
		return "🥈 Good (≥28%)"
	case accuracy >= 25:
		return "🥉 Fair (≥25%)"
	default:
		return "📚 Below random (<25%)"
	}
}

// CreateInlineKeyboard 创建内联键盘
func CreateInlineKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("🔮 Predict", "predict"),
			tgbotapi.NewInlineKeyboardButtonData("📊 Draws", "history"),
		),
		tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("📈 Statistics", "stats"),
			tgbotapi.NewInlineKeyboardButtonData("🧠 Auto", "auto"),
		),
	)
}
