package models

// Dish is one orderable menu entry. Identity is the string ID assigned at
// creation time; it never changes afterwards.
type Dish struct {
	ID          string  `json:"id" yaml:"id"`
	Name        string  `json:"name" yaml:"name"`
	Price       float64 `json:"price" yaml:"price"`
	Description string  `json:"description" yaml:"description"`
	Steps       string  `json:"steps" yaml:"steps"`
	Image       string  `json:"image,omitempty" yaml:"image,omitempty"`
}

// DishFields carries the mutable part of a dish for create/update calls.
// Nil pointers in an update mean "leave as is".
type DishFields struct {
	Name        *string  `json:"name,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Description *string  `json:"description,omitempty"`
	Steps       *string  `json:"steps,omitempty"`
	Image       *string  `json:"image,omitempty"`
}

// DefaultMenu returns the seed catalog used when the store holds no menu yet.
func DefaultMenu() []Dish {
	return []Dish{
		{
			ID:          "1",
			Name:        "爱心煎蛋",
			Price:       0.50,
			Description: "心形煎蛋，充满爱意的早餐",
			Steps:       "1. 热锅冷油，打入鸡蛋。\n2. 用模具或锅铲塑成心形。\n3. 小火慢煎，撒上盐和胡椒。",
			Image:       "./image/1.png",
		},
		{
			ID:          "2",
			Name:        "草莓饼干",
			Price:       0.80,
			Description: "新鲜草莓制作的美味饼干",
			Steps:       "1. 黄油软化，加糖打发。\n2. 筛入面粉，拌入草莓丁。\n3. 烤箱预热180度，烤15分钟。",
			Image:       "./image/2.png",
		},
		{
			ID:          "3",
			Name:        "水果沙拉",
			Price:       0.75,
			Description: "新鲜时令水果搭配",
			Steps:       "1. 将各种水果切块。\n2. 淋上酸奶或沙拉酱。\n3. 轻轻拌匀即可。",
			Image:       "./image/3.png",
		},
		{
			ID:          "4",
			Name:        "奶香小馒头",
			Price:       0.30,
			Description: "松软香甜的小馒头",
			Steps:       "1. 面粉、酵母、牛奶混合。\n2. 揉成光滑面团，发酵。\n3. 整形后烤箱蒸15分钟。",
			Image:       "./image/4.png",
		},
		{
			ID:          "5",
			Name:        "蜂蜜柚子茶",
			Price:       0.60,
			Description: "温润去燥的蜂蜜柚子茶",
			Steps:       "1. 柚子用盐搓洗干净。\n2. 剥出果肉，切丝。\n3. 与冰糖同煮，冷却后加蜂蜜。",
			Image:       "./image/5.png",
		},
		{
			ID:          "6",
			Name:        "电饭煲闷饭",
			Price:       0.50,
			Description: "香浓入味的电饭煲闷饭",
			Steps:       "1. 将大米淘洗干净，放入电饭煲。\n2. 加入适量水，选择煮饭模式。\n3. 等待电饭煲提示，即可享用。",
			Image:       "./image/6.png",
		},
		{
			ID:          "7",
			Name:        "铁板豆腐",
			Price:       0.80,
			Description: "外酥里嫩的铁板豆腐，香气四溢",
			Steps:       "1. 豆腐切厚片，用厨房纸吸干水分。\n2. 热铁板或平底锅，倒少许油。\n3. 将豆腐煎至两面金黄。\n4. 加入调味酱汁，小火收汁入味。\n5. 撒葱花或芝麻点缀。",
			Image:       "./image/7.jpg",
		},
		{
			ID:          "8",
			Name:        "洋葱炒牛肉",
			Price:       0.80,
			Description: "鲜嫩多汁的牛肉配上香甜洋葱，热腾腾的铁板香气扑鼻",
			Steps:       "1. 牛肉切片,用酱油、料酒、淀粉腌制15分钟。\n2. 洋葱切丝备用。\n3. 热铁板或平底锅，倒少许油。\n4. 大火快炒牛肉至变色，盛出备用。\n5. 洋葱丝炒香后加入牛肉，倒入调味汁。\n6. 小火收汁，撒葱花装盘上桌。",
			Image:       "./image/8.jpg",
		},
	}
}
