// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	registrySubsystem = "registry"
	bufferSubsystem   = "buffer"
	documentSubsystem = "document"
)

var (
	RegistryLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: stackjsonNamespace,
		Subsystem: registrySubsystem,
		Name:      "lookups_total",
		Help:      "类型描述缓存的查询次数，按命中与否区分",
	}, []string{resultLabelName})

	ClassInfoBuilt = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: stackjsonNamespace,
		Subsystem: registrySubsystem,
		Name:      "class_info_built_total",
		Help:      "已构建并发布的类型描述数量",
	})

	BufferGrows = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: stackjsonNamespace,
		Subsystem: bufferSubsystem,
		Name:      "grows_total",
		Help:      "流式读取时缓冲区扩容的次数",
	})

	BufferShifts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: stackjsonNamespace,
		Subsystem: bufferSubsystem,
		Name:      "shifts_total",
		Help:      "流式读取时未消费数据被平移到缓冲区头部的次数",
	})

	BytesRead = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: stackjsonNamespace,
		Subsystem: bufferSubsystem,
		Name:      "read_bytes_total",
		Help:      "从数据源读取的总字节数",
	})

	Flushes = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: stackjsonNamespace,
		Subsystem: bufferSubsystem,
		Name:      "flushes_total",
		Help:      "写引擎达到刷新阈值后向下游刷新的次数",
	})

	Documents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: stackjsonNamespace,
		Subsystem: documentSubsystem,
		Name:      "total",
		Help:      "处理的文档数量，按操作与结果区分",
	}, []string{operationLabelName, statusLabelName})

	DocumentSize = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: stackjsonNamespace,
		Subsystem: documentSubsystem,
		Name:      "size_bytes",
		Help:      "单个文档的字节数",
		Buckets:   sizeBuckets,
	}, []string{operationLabelName})
)

// RegisterSerializationMetrics 将序列化相关的指标注册到 Prometheus Registerer 中。
func RegisterSerializationMetrics(registry prometheus.Registerer) {
	registry.MustRegister(RegistryLookups)
	registry.MustRegister(ClassInfoBuilt)
	registry.MustRegister(BufferGrows)
	registry.MustRegister(BufferShifts)
	registry.MustRegister(BytesRead)
	registry.MustRegister(Flushes)
	registry.MustRegister(Documents)
	registry.MustRegister(DocumentSize)
}
