package preference

// Vocabularies mirror the values used in the product catalog plus the
// phrasing shoppers commonly use on e-commerce sites.
var (
	headsetTypes = []string{"头戴式", "入耳式", "半入耳式", "颈挂式"}

	coreFunctions = []string{
		"降噪", "无线蓝牙", "超长续航", "防水", "游戏低延迟", "空间音频",
		"快充", "重低音", "高解析", "RGB灯效", "触控", "降噪麦克风",
	}

	brands = []string{
		"索尼", "苹果", "小米", "漫步者", "雷柏", "华为", "森海塞尔", "倍思",
		"荣耀", "JBL", "西伯利亚", "OPPO", "vivo", "铁三角", "Skullcandy",
		"先锋", "三星", "微软", "HyperX", "飞利浦", "Bose", "Anker", "Beats",
	}

	scenarios = []string{"通勤", "日常", "运动", "游戏", "办公", "音乐"}

	priceLowKeywords  = []string{"便宜", "性价比", "实惠", "划算", "低价", "学生", "百元", "200以内", "300以下", "预算低"}
	priceMidKeywords  = []string{"中等", "中端", "千元", "500-1000", "平衡"}
	priceHighKeywords = []string{"贵", "好一点", "预算充足", "顶级", "旗舰", "高端", "不差钱", "1000以上", "2000以上"}

	explorationKeywords   = []string{"推荐", "有什么", "有哪些", "介绍", "看看", "了解"}
	considerationKeywords = []string{"对比", "区别", "哪个好", "优缺点", "参数", "怎么样"}
	decisionKeywords      = []string{"就买", "下单", "链接", "决定", "就要", "购买", "买这个"}

	attributeNouns = []string{"预算", "价格", "续航", "音质", "佩戴"}

	priceFocusExtras    = []string{"预算", "价格"}
	functionFocusExtras = []string{"音质", "佩戴", "续航", "参数"}
)

func concat(lists ...[]string) []string {
	var n int
	for _, l := range lists {
		n += len(l)
	}
	out := make([]string, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
