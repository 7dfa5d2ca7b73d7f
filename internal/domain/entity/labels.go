package entity

// CocoLabels словарь классов модели YOLOv4 (COCO, 80 классов) в порядке выходов сети.
var CocoLabels = []string{
	"person", "bicycle", "car", "motorbike", "aeroplane", "bus", "train",
	"truck", "boat", "traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat", "dog", "horse",
	"sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack", "umbrella", "handbag", "tie", "suitcase", "frisbee",
	"skis", "snowboard", "sports ball", "kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple", "sandwich", "orange", "broccoli",
	"carrot", "hot dog", "pizza", "donut", "cake", "chair", "sofa", "pottedplant", "bed", "diningtable", "toilet", "tvmonitor",
	"laptop", "mouse", "remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink", "refrigerator", "book",
	"clock", "vase", "scissors", "teddy bear", "hair drier", "toothbrush",
}

// Vocabulary закрытый набор меток, известный на этапе конфигурации.
type Vocabulary struct {
	labels []string
	index  map[string]int
}

// NewVocabulary создаёт словарь из списка меток.
func NewVocabulary(labels []string) *Vocabulary {
	v := &Vocabulary{
		labels: append([]string(nil), labels...),
		index:  make(map[string]int, len(labels)),
	}
	for i, l := range v.labels {
		v.index[l] = i
	}
	return v
}

// Label возвращает метку по номеру класса.
func (v *Vocabulary) Label(classID int) (string, bool) {
	if classID < 0 || classID >= len(v.labels) {
		return "", false
	}
	return v.labels[classID], true
}

// Contains проверяет, входит ли метка в словарь.
func (v *Vocabulary) Contains(label string) bool {
	_, ok := v.index[label]
	return ok
}

// Len число классов
func (v *Vocabulary) Len() int {
	return len(v.labels)
}
