package risk

import (
	"math"
	"math/rand"
)

// regressor обученная модель, только чтение
type regressor interface {
	predict(x [2]float64) float64
}

// meanPredictor модель из одного листа
type meanPredictor struct {
	value float64
}

func (m meanPredictor) predict([2]float64) float64 { return m.value }

// forest ансамбль деревьев на бутстрэп-выборках
type forest struct {
	trees []*node
}

func (f *forest) predict(x [2]float64) float64 {
	var sum float64
	for _, t := range f.trees {
		sum += t.predict(x)
	}
	return sum / float64(len(f.trees))
}

func fitForest(samples []sample, opts Options, rng *rand.Rand) *forest {
	params := treeParams{minSamplesLeaf: opts.MinSamplesLeaf, maxDepth: opts.MaxDepth}
	f := &forest{trees: make([]*node, 0, opts.Trees)}

	n := len(samples)
	for t := 0; t < opts.Trees; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		f.trees = append(f.trees, buildTree(samples, idx, 0, params, rng))
	}
	return f
}

func fitMean(samples []sample) meanPredictor {
	if len(samples) == 0 {
		return meanPredictor{}
	}
	var sum float64
	for _, s := range samples {
		sum += s.y
	}
	return meanPredictor{value: sum / float64(len(samples))}
}

// holdOut делит выборку на обучающую и проверочную части.
// Размер проверочной части округляется вверх и всегда оставляет хотя бы один обучающий пример.
func holdOut(samples []sample, fraction float64, rng *rand.Rand) (train, test []sample) {
	nTest := int(math.Ceil(fraction * float64(len(samples))))
	if nTest < 1 {
		nTest = 1
	}
	if nTest > len(samples)-1 {
		nTest = len(samples) - 1
	}

	perm := rng.Perm(len(samples))
	for i, p := range perm {
		if i < nTest {
			test = append(test, samples[p])
		} else {
			train = append(train, samples[p])
		}
	}
	return train, test
}

func meanSquaredError(model regressor, test []sample) float64 {
	if len(test) == 0 {
		return 0
	}
	var sum float64
	for _, s := range test {
		d := model.predict(s.x) - s.y
		sum += d * d
	}
	return sum / float64(len(test))
}
