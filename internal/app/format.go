package app

import (
	"fmt"
	"strings"
	"time"

	"boss_alert_bot/internal/domain/boss"
)

const noUpcomingText = "예정된 보스가 없습니다."

func bossLabel(def boss.Definition) string {
	if def.Location == "" {
		return def.Name
	}
	return fmt.Sprintf("%s (%s)", def.Name, def.Location)
}

// FormatAlert renders the short-lived spawn alert.
func FormatAlert(mention string, occ boss.Occurrence) string {
	text := fmt.Sprintf("⏰ `%s` %d분 후 출현! (%s)", bossLabel(occ.Boss), boss.AlertLeadMinutes, occ.At.Format("15:04"))
	if mention == "" {
		return text
	}
	return mention + " " + text
}

// FormatUpcoming renders the display lookahead for the /보스 command.
func FormatUpcoming(occs []boss.Occurrence, now time.Time) string {
	if len(occs) == 0 {
		return noUpcomingText
	}
	var b strings.Builder
	b.WriteString("🕒 앞으로 등장할 보스 순서\n")
	for _, occ := range occs {
		left := occ.At.Sub(now)
		if left < 0 {
			left = 0
		}
		fmt.Fprintf(&b, "**%s** - %s (%d분 %d초 후)\n",
			bossLabel(occ.Boss), occ.At.Format("15:04"),
			int(left/time.Minute), int((left%time.Minute)/time.Second))
	}
	return strings.TrimRight(b.String(), "\n")
}

// FormatClock renders the /시간 reply.
func FormatClock(now time.Time) string {
	return fmt.Sprintf("🕒 현재 시각: %s", now.Format("2006-01-02 15:04:05 MST"))
}

// FormatTrackerBoard renders the subscribe message body with the next two spawns.
func FormatTrackerBoard(occs []boss.Occurrence, now time.Time, emojis []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🛎️ 보스 알림을 받고 싶으면 이 메시지에 %s 이모지를 눌러주세요!\n", strings.Join(emojis, " "))
	fmt.Fprintf(&b, "새로운 보스 리젠 알림이 %d분 전 올라옵니다.\n\n", boss.AlertLeadMinutes)

	if len(occs) == 0 {
		b.WriteString("📢 다음 보스: " + noUpcomingText)
		return b.String()
	}
	next := occs[0]
	fmt.Fprintf(&b, "📢 다음 보스: **%s** (%s, %d분 후)", bossLabel(next.Boss), next.At.Format("15:04"), int(next.At.Sub(now)/time.Minute))
	if len(occs) > 1 {
		after := occs[1]
		fmt.Fprintf(&b, "\n⏭️ 그 다음 보스: **%s** (%s)", bossLabel(after.Boss), after.At.Format("15:04"))
	}
	return b.String()
}
