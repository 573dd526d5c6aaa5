package notifier

import (
	"fmt"
	"strings"

	"duetmenu/internal/models"
)

// Title builds the short push headline for an order.
func Title(record *models.OrderRecord) string {
	return fmt.Sprintf("🛎️ 新订单提醒 #%s", record.ShortID())
}

// Summary renders the Markdown order digest: id prefix, submission time,
// an itemized table and the grand total.
func Summary(record *models.OrderRecord) string {
	var b strings.Builder

	b.WriteString("## 📋 点餐详情\n\n")
	fmt.Fprintf(&b, "**订单号：** %s\n", record.ShortID())
	fmt.Fprintf(&b, "**下单时间：** %s\n\n", record.Timestamp.Local().Format("2006-01-02 15:04:05"))
	b.WriteString("### 🍽️ 菜品清单\n\n")
	b.WriteString("| 菜品名称 | 数量 | 单价 | 小计 |\n")
	b.WriteString("|---------|------|------|------|\n")

	for _, item := range record.Items {
		fmt.Fprintf(&b, "| %s | %d | ¥%.2f | ¥%.2f |\n",
			item.DishName, item.Quantity, item.Price, item.Subtotal())
	}

	fmt.Fprintf(&b, "\n**💰 订单总计：¥%.2f**\n\n", record.Total)
	b.WriteString("---\n📱 来自宁宝专用点餐系统")

	return b.String()
}
