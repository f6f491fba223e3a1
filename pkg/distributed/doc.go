// Package distributed 提供任务编排相关的子包。
//
// 子包列表：
//   - xcrontab: 按 cron 表达式复用触发器的周期任务多路复用器，
//     组合 xkeylock 与 xsched 两个下层原语
package distributed
